package app

import "time"

const (
	Name           = "presencego"
	SourceURL      = "https://git.skobk.in/skobkin/presencego"
	ConfigFilename = "config.json"
	DBFilename     = "history.db"
	LogFilename    = "presenced.log"

	// HistoryPruneInterval is how often expired history rows are removed.
	HistoryPruneInterval = 6 * time.Hour
	writerQueueCapacity  = 512
)

package database

import "motifcore/src/datamodels"

var DbTables = []interface{}{
	&datamodels.FeedStatusChange{},
	&datamodels.ConnectionStateChange{},
	&datamodels.Metric{},
}

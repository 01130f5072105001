package feeds

import (
	"motifcore/src/datamodels"
	"motifcore/src/node"
)

func Register(registry node.Registry) {
	registry.Register(datamodels.ChannelFeeds, NewFeedsNode)
	registry.Register(datamodels.ChannelTradingMarkets, NewTradingMarketsNode)
	registry.Register(datamodels.ChannelOrderStatuses, NewOrderStatusesNode)
}

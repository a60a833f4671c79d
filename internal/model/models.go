package model

// AllModels 自动迁移的模型列表
var AllModels = []interface{}{
	&ConversationTurn{},
	&Order{},
	&MenuItem{},
}

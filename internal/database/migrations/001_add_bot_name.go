package migrations

import (
	"github.com/botwatch/botwatch-api/internal/types"
	"gorm.io/gorm"
)

// AddBotName backfills the bot_name column on the trade ledger. Ledgers
// created before multi-bot support have rows with no bot identity; those
// all belong to the main bot.
func AddBotName(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.Trade{}); err != nil {
		return err
	}

	return db.Model(&types.Trade{}).
		Where("bot_name IS NULL OR bot_name = ''").
		Update("bot_name", types.DefaultBot).Error
}

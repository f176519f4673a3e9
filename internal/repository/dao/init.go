package dao

import "gorm.io/gorm"

// Only one round may be OPEN at a time. gorm tags cannot express a partial
// index, so it is created by hand after AutoMigrate.
const singleOpenRoundIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_lottery_rounds_single_open
	ON lottery_rounds (status) WHERE status = 'OPEN'`

func InitTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&OTP{},
		&Settings{},
		&Round{},
		&LotteryCode{},
		&Payment{},
		&Winner{},
		&TransactionLog{},
		&Feedback{},
	)
	if err != nil {
		return err
	}

	return db.Exec(singleOpenRoundIndex).Error
}

func dropAllTables(db *gorm.DB) error {
	var tableNames []string
	if err := db.Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Pluck("table_name", &tableNames).Error; err != nil {
		return err
	}

	for _, tableName := range tableNames {
		if err := db.Exec("DROP TABLE IF EXISTS " + tableName + " CASCADE").Error; err != nil {
			return err
		}
	}

	return nil
}

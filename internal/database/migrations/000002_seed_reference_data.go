package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// SeedReferenceData inserts the binary settings singleton and a starter rank
// table so a fresh deployment can take purchases immediately. Admins tune
// these rows afterwards.
func SeedReferenceData() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_seed_reference_data",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				INSERT INTO binary_settings
					(match_percent, max_daily_matches, carryover_enabled,
					 require_active_left, require_active_right, min_leg_volume, volume_split_percent)
				SELECT 10, 10, TRUE, TRUE, TRUE, 0, 100
				WHERE NOT EXISTS (SELECT 1 FROM binary_settings);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				INSERT INTO rank_tiers
					(name, order_index, reward_amount, min_direct_referrals,
					 min_active_directs, min_team_volume, min_personal_volume, unlocked_levels)
				VALUES
					('starter',   1,   50,  2,  1,   1000,   100,  5),
					('builder',   2,  200,  5,  3,   5000,   500, 10),
					('leader',    3,  500, 10,  5,  25000,  1000, 15),
					('director',  4, 2000, 20, 10, 100000,  2500, 22),
					('president', 5, 5000, 30, 15, 500000,  5000, 30)
				ON CONFLICT (name) DO NOTHING;
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DELETE FROM rank_tiers WHERE name IN
					('starter', 'builder', 'leader', 'director', 'president');
				DELETE FROM binary_settings;
			`).Error
		},
	}
}

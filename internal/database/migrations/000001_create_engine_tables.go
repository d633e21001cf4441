package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateEngineTables creates the core commission engine tables
func CreateEngineTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_engine_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "pgcrypto";

				CREATE TABLE IF NOT EXISTS accounts (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					username VARCHAR(50) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL UNIQUE,
					referral_code VARCHAR(50) NOT NULL UNIQUE,
					sponsor_id UUID REFERENCES accounts(id),
					wallet_balance DECIMAL(20,8) NOT NULL DEFAULT 0,
					total_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					roi_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					commission_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					binary_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					rank_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					rank VARCHAR(50) NOT NULL DEFAULT 'member',
					kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					enrolled_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					last_login_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_accounts_sponsor_id ON accounts(sponsor_id);
				CREATE INDEX idx_accounts_referral_code ON accounts(referral_code);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS binary_nodes (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					account_id UUID NOT NULL UNIQUE REFERENCES accounts(id),
					parent_id UUID REFERENCES binary_nodes(id),
					position VARCHAR(5),
					left_child_id UUID,
					right_child_id UUID,
					left_volume DECIMAL(20,8) NOT NULL DEFAULT 0,
					right_volume DECIMAL(20,8) NOT NULL DEFAULT 0,
					left_carry DECIMAL(20,8) NOT NULL DEFAULT 0,
					right_carry DECIMAL(20,8) NOT NULL DEFAULT 0,
					own_volume DECIMAL(20,8) NOT NULL DEFAULT 0,
					matched_total DECIMAL(20,8) NOT NULL DEFAULT 0,
					depth INT NOT NULL DEFAULT 0,
					matches_today INT NOT NULL DEFAULT 0,
					match_date VARCHAR(10),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (parent_id, position)
				);

				CREATE INDEX idx_binary_nodes_parent_id ON binary_nodes(parent_id);
				CREATE INDEX idx_binary_nodes_depth ON binary_nodes(depth);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS package_types (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(100) NOT NULL UNIQUE,
					min_amount DECIMAL(20,8) NOT NULL,
					max_amount DECIMAL(20,8) NOT NULL,
					daily_rate_percent DECIMAL(8,4) NOT NULL,
					cap_multiplier DECIMAL(8,4) NOT NULL DEFAULT 2,
					duration_days INT NOT NULL,
					direct_percent DECIMAL(8,4) NOT NULL DEFAULT 0,
					booster_percent DECIMAL(8,4) NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE TABLE IF NOT EXISTS level_percents (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					package_type_id UUID NOT NULL REFERENCES package_types(id),
					level INT NOT NULL,
					percent DECIMAL(8,4) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (package_type_id, level)
				);

				CREATE TABLE IF NOT EXISTS packages (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					account_id UUID NOT NULL REFERENCES accounts(id),
					package_type_id UUID NOT NULL REFERENCES package_types(id),
					principal DECIMAL(20,8) NOT NULL,
					daily_amount DECIMAL(20,8) NOT NULL,
					cap DECIMAL(20,8) NOT NULL,
					earned DECIMAL(20,8) NOT NULL DEFAULT 0,
					activated_at TIMESTAMP WITH TIME ZONE NOT NULL,
					expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
					last_payout_date VARCHAR(10),
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_packages_account_id ON packages(account_id);
				CREATE INDEX idx_packages_status ON packages(status);

				CREATE TABLE IF NOT EXISTS roi_payouts (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					package_id UUID NOT NULL REFERENCES packages(id),
					payout_date VARCHAR(10) NOT NULL,
					amount DECIMAL(20,8) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (package_id, payout_date)
				);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS transactions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					account_id UUID NOT NULL REFERENCES accounts(id),
					category VARCHAR(30) NOT NULL,
					amount DECIMAL(20,8) NOT NULL,
					counterparty_id UUID,
					level INT,
					package_id UUID,
					reference VARCHAR(100) UNIQUE,
					status VARCHAR(20) NOT NULL DEFAULT 'completed',
					description TEXT,
					balance_after DECIMAL(20,8),
					meta_data JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_transactions_account_id ON transactions(account_id);
				CREATE INDEX idx_transactions_category ON transactions(category);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS rank_tiers (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(50) NOT NULL UNIQUE,
					order_index INT NOT NULL UNIQUE,
					reward_amount DECIMAL(20,8) NOT NULL,
					min_direct_referrals INT NOT NULL,
					min_active_directs INT NOT NULL,
					min_team_volume DECIMAL(20,8) NOT NULL,
					min_personal_volume DECIMAL(20,8) NOT NULL,
					unlocked_levels INT NOT NULL DEFAULT 5,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE TABLE IF NOT EXISTS rank_achievements (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					account_id UUID NOT NULL REFERENCES accounts(id),
					rank_tier_id UUID NOT NULL REFERENCES rank_tiers(id),
					rank_name VARCHAR(50) NOT NULL,
					reward_amount DECIMAL(20,8) NOT NULL,
					distributed_by VARCHAR(50) NOT NULL DEFAULT 'system',
					achieved_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					UNIQUE (account_id, rank_tier_id)
				);

				CREATE TABLE IF NOT EXISTS binary_settings (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					match_percent DECIMAL(8,4) NOT NULL DEFAULT 10,
					max_daily_matches INT NOT NULL DEFAULT 10,
					carryover_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					require_active_left BOOLEAN NOT NULL DEFAULT TRUE,
					require_active_right BOOLEAN NOT NULL DEFAULT TRUE,
					min_leg_volume DECIMAL(20,8) NOT NULL DEFAULT 0,
					volume_split_percent DECIMAL(8,4) NOT NULL DEFAULT 100,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS binary_settings;
				DROP TABLE IF EXISTS rank_achievements;
				DROP TABLE IF EXISTS rank_tiers;
				DROP TABLE IF EXISTS transactions;
				DROP TABLE IF EXISTS roi_payouts;
				DROP TABLE IF EXISTS packages;
				DROP TABLE IF EXISTS level_percents;
				DROP TABLE IF EXISTS package_types;
				DROP TABLE IF EXISTS binary_nodes;
				DROP TABLE IF EXISTS accounts;
			`).Error
		},
	}
}

// Package postgres implements the PostgreSQL persistence layer for Growth Hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE REFERRAL TABLES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create referral tables
-- Version: 001

-- Permanent ambassador profiles. Points only grow through the conditional
-- credit in CompleteAndCredit, never through direct updates.
CREATE TABLE IF NOT EXISTS ambassadors (
    identity BIGINT PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL,
    points INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_identity CHECK (identity > 0),
    CONSTRAINT valid_points CHECK (points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_ambassadors_points ON ambassadors(points DESC, created_at ASC);

-- Lifetime referral relationships. One row per referred identity, forever.
CREATE TABLE IF NOT EXISTS ambassador_referrals (
    referred BIGINT PRIMARY KEY,
    referrer BIGINT NOT NULL REFERENCES ambassadors(identity) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_referral_status CHECK (status IN ('pending', 'completed')),
    CONSTRAINT no_self_referral CHECK (referred <> referrer)
);

CREATE INDEX IF NOT EXISTS idx_ambassador_referrals_referrer ON ambassador_referrals(referrer, status);
`

const migration001Down = `
DROP TABLE IF EXISTS ambassador_referrals;
DROP TABLE IF EXISTS ambassadors;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CONTEST TABLE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create contest referrals table
-- Version: 002

-- Month-scoped contest referrals. One row per referred identity; a row from
-- an earlier month is replaced when the identity joins a new month's contest.
-- Rows with referrer = 0 only anchor a link owner's display name. The
-- referrer's name is denormalized onto each row at registration so the
-- monthly ranking never joins back to the referrer's own row.
CREATE TABLE IF NOT EXISTS contest_referrals (
    referred BIGINT PRIMARY KEY,
    referrer BIGINT NOT NULL DEFAULT 0,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    referrer_display_name VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    completed_at TIMESTAMP WITH TIME ZONE,
    period VARCHAR(10) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_contest_status CHECK (status IN ('pending', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_contest_referrals_referrer_period
    ON contest_referrals(referrer, period) WHERE status = 'completed';
`

const migration002Down = `
DROP TABLE IF EXISTS contest_referrals;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENGAGEMENT AND ARCHIVE TABLES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create engagement counters and the winner archive
-- Version: 003

-- Weekly message counters. The (identity, period) upsert in RecordMessage is
-- the only writer; first_message_at keeps the tie-break stable across updates.
CREATE TABLE IF NOT EXISTS engagement (
    identity BIGINT NOT NULL,
    period VARCHAR(10) NOT NULL,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    message_count INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    first_message_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (identity, period),
    CONSTRAINT valid_message_count CHECK (message_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_engagement_period_count
    ON engagement(period, message_count DESC, first_message_at ASC);

-- Append-only winner archive. Rows survive every weekly reset and the full
-- data wipe never touches them through the repositories, only ResetAll does.
CREATE TABLE IF NOT EXISTS winner_archive (
    id BIGSERIAL PRIMARY KEY,
    category VARCHAR(30) NOT NULL,
    period VARCHAR(10) NOT NULL,
    identity BIGINT NOT NULL,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    count INTEGER NOT NULL DEFAULT 0,
    reward VARCHAR(50) NOT NULL DEFAULT '',
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_winner_archive_category_period
    ON winner_archive(category, period, count DESC, id ASC);
`

const migration003Down = `
DROP TABLE IF EXISTS winner_archive;
DROP TABLE IF EXISTS engagement;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_referral_tables",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_contest_table",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_engagement_tables",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

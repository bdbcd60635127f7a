package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS donations(
  id TEXT PRIMARY KEY,
  donor_org_id TEXT NOT NULL,
  category TEXT NOT NULL,
  quantity TEXT NOT NULL,
  condition TEXT NOT NULL,
  description TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  origin_lat REAL,
  origin_lng REAL,
  status TEXT NOT NULL CHECK (status IN ('open','matched','completed','cancelled')),
  match_id TEXT NOT NULL DEFAULT '',
  version INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_donations_status     ON donations(status);
CREATE INDEX IF NOT EXISTS idx_donations_donor      ON donations(donor_org_id);
CREATE INDEX IF NOT EXISTS idx_donations_city       ON donations(LOWER(city));
CREATE INDEX IF NOT EXISTS idx_donations_created_at ON donations(created_at);

CREATE TABLE IF NOT EXISTS requests(
  id TEXT PRIMARY KEY,
  requesting_org_id TEXT NOT NULL,
  category TEXT NOT NULL,
  quantity TEXT NOT NULL,
  urgency TEXT NOT NULL,
  description TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  lat REAL,
  lng REAL,
  fulfilled INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_fulfilled  ON requests(fulfilled);
CREATE INDEX IF NOT EXISTS idx_requests_org        ON requests(requesting_org_id);
CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);

CREATE TABLE IF NOT EXISTS matches(
  id TEXT PRIMARY KEY,
  donation_id TEXT NOT NULL,
  request_id TEXT NOT NULL DEFAULT '',
  claimant_org_id TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('active','completed','cancelled')),
  score REAL NOT NULL DEFAULT 0,
  explanation_json TEXT NOT NULL DEFAULT '[]',
  fulfilled_request INTEGER NOT NULL DEFAULT 0,
  completed_at INTEGER,
  cancelled_at INTEGER,
  version INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
-- one live match per donation
CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_live_donation ON matches(donation_id) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS idx_matches_status     ON matches(status);
CREATE INDEX IF NOT EXISTS idx_matches_claimant   ON matches(claimant_org_id);
CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at);
`

// Migrate creates the matching tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

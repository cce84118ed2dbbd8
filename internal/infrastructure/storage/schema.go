package storage

// Schema creates the two tables the service owns. The composite primary key
// on article_deltas is what makes re-imports an upsert-as-replace instead
// of an additive merge.
const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL DEFAULT 'draft',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_articles_title ON articles(title);

CREATE TABLE IF NOT EXISTS article_deltas (
    article_id TEXT NOT NULL REFERENCES articles(id),
    date       TEXT NOT NULL,
    pv         INTEGER NOT NULL DEFAULT 0,
    likes      INTEGER NOT NULL DEFAULT 0,
    comments   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (article_id, date)
);

CREATE INDEX IF NOT EXISTS idx_article_deltas_date ON article_deltas(date);
`

/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package posts

import (
	"context"
	"database/sql"
	"math"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const createTableStmt = `CREATE TABLE IF NOT EXISTS posts (
  id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  body TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT FALSE
)`

// SQLStore is a Store backed by a MySQL database. The underlying *sql.DB is a connection pool;
// callers block in the pool when all MaxOpenConns connections are in use.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// SQLOptions configures the connection pool created by OpenSQLStore.
type SQLOptions struct {
	// MaxOpenConns limits the number of open connections. Zero means unlimited.
	MaxOpenConns int
}

// OpenSQLStore opens a connection pool for the MySQL DSN
// ("user:password@tcp(host:3306)/dbname").
func OpenSQLStore(dsn string, options SQLOptions) (*SQLStore, error) {
	config, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse database DSN")
	}

	connector, err := mysql.NewConnector(config)
	if err != nil {
		return nil, errors.Wrap(err, "create database connector")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(options.MaxOpenConns)
	return NewSQLStore(db), nil
}

// NewSQLStore creates a SQLStore on top of db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the posts table if it doesn't exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createTableStmt)
	return errors.Wrap(err, "create posts table")
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Published implements Store.
func (s *SQLStore) Published(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body, published FROM posts WHERE published = TRUE ORDER BY id LIMIT ?",
		limit)
	if err != nil {
		return nil, errors.Wrap(err, "query published posts")
	}
	defer rows.Close()

	result := []Post{}
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.Published); err != nil {
			return nil, errors.Wrap(err, "scan post")
		}
		result = append(result, post)
	}
	return result, errors.Wrap(rows.Err(), "iterate posts")
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, post NewPost) (Post, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (title, body, published) VALUES (?, ?, FALSE)",
		post.Title, post.Body)
	if err != nil {
		return Post{}, errors.Wrap(err, "insert post")
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return Post{}, errors.Wrap(err, "read id of inserted post")
	}
	id, err := postID(lastID)
	if err != nil {
		return Post{}, err
	}

	return Post{
		ID:    id,
		Title: post.Title,
		Body:  post.Body,
	}, nil
}

// postID converts an id assigned by the database to a Post id. Post ids are Int! in GraphQL.
func postID(id int64) (int32, error) {
	if id < 1 || id > math.MaxInt32 {
		return 0, errors.Errorf("post id %d is out of range", id)
	}
	return int32(id), nil
}

// Publish implements Store.
func (s *SQLStore) Publish(ctx context.Context, id int32) (Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Post{}, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE posts SET published = TRUE WHERE id = ?", id); err != nil {
		return Post{}, errors.Wrap(err, "publish post")
	}

	var post Post
	err = tx.QueryRowContext(ctx,
		"SELECT id, title, body, published FROM posts WHERE id = ?", id).
		Scan(&post.ID, &post.Title, &post.Body, &post.Published)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, errors.Wrap(err, "load post")
	}

	if err := tx.Commit(); err != nil {
		return Post{}, errors.Wrap(err, "commit transaction")
	}
	return post, nil
}

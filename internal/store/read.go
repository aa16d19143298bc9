package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (Revision, error) {
	var r Revision
	err := row.Scan(&r.ID, &r.Tree, &r.Seq, &r.Hash, &r.Message, &r.Nodes, &r.Connections)
	return r, err
}

// LoadRevision returns a stored document and its revision. An empty id
// selects the tree's latest revision; otherwise id must belong to tree.
// Returns an error wrapping sql.ErrNoRows if there is no such revision.
func (s *Store) LoadRevision(ctx context.Context, tree, id string) (document.Document, Revision, error) {
	var row *sql.Row
	if id == "" {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, tree_name, seq, content_hash, message, node_count, connection_count
			FROM revisions
			WHERE tree_name = ?
			ORDER BY seq DESC
			LIMIT 1
		`, tree)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, tree_name, seq, content_hash, message, node_count, connection_count
			FROM revisions
			WHERE tree_name = ? AND id = ?
		`, tree, id)
	}
	rev, err := scanRevision(row)
	if err != nil {
		return document.Document{}, Revision{}, fmt.Errorf("load revision %q of %q: %w", id, tree, err)
	}

	nodes, err := s.readNodes(ctx, rev.ID)
	if err != nil {
		return document.Document{}, Revision{}, err
	}
	conns, err := s.readConnections(ctx, rev.ID)
	if err != nil {
		return document.Document{}, Revision{}, err
	}
	return document.Document{Nodes: nodes, Connections: conns}, rev, nil
}

func (s *Store) readNodes(ctx context.Context, revisionID string) ([]document.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, x, y, title, description, image_data, unlocked
		FROM nodes
		WHERE revision_id = ?
		ORDER BY ordinal ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []document.NodeRecord{}
	for rows.Next() {
		var n document.NodeRecord
		var image sql.NullString
		if err := rows.Scan(&n.ID, &n.X, &n.Y, &n.Title, &n.Description, &image, &n.Unlocked); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if image.Valid {
			n.ImageData = &image.String
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) readConnections(ctx context.Context, revisionID string) ([]document.ConnectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_id, to_id
		FROM connections
		WHERE revision_id = ?
		ORDER BY ordinal ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	conns := []document.ConnectionRecord{}
	for rows.Next() {
		var c document.ConnectionRecord
		if err := rows.Scan(&c.FromID, &c.ToID); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return conns, nil
}

// ListRevisions returns a tree's revisions, oldest first.
// Returns an empty slice (not nil) for an unknown tree.
func (s *Store) ListRevisions(ctx context.Context, tree string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tree_name, seq, content_hash, message, node_count, connection_count
		FROM revisions
		WHERE tree_name = ?
		ORDER BY seq ASC
	`, tree)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// ListTrees returns the names of all stored trees in byte order.
func (s *Store) ListTrees(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tree_name
		FROM revisions
		ORDER BY tree_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query trees: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tree name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trees: %w", err)
	}
	return names, nil
}

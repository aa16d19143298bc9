package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
)

// Revision describes one saved version of a tree.
type Revision struct {
	ID          string `json:"id"`
	Tree        string `json:"tree"`
	Seq         int64  `json:"seq"`
	Hash        string `json:"hash"`
	Message     string `json:"message,omitempty"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
}

// SaveRevision appends doc as the next revision of the named tree.
//
// When doc hashes the same as the tree's latest revision nothing is
// written; the latest revision is returned with created=false. Saving
// content that matches an older revision still appends, so history keeps
// the order in which versions were saved.
//
// The revision row and every record are written in one transaction.
func (s *Store) SaveRevision(ctx context.Context, tree string, doc document.Document, message string) (rev Revision, created bool, err error) {
	if tree == "" {
		return Revision{}, false, errors.New("save revision: tree name is empty")
	}
	hash, err := document.Hash(doc)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save revision: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save revision: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	latest, err := scanRevision(tx.QueryRowContext(ctx, `
		SELECT id, tree_name, seq, content_hash, message, node_count, connection_count
		FROM revisions
		WHERE tree_name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, tree))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Revision{}, false, fmt.Errorf("save revision: %w", err)
	case latest.Hash == hash:
		s.logger.Debug("revision unchanged", "tree", tree, "revision", latest.ID)
		return latest, false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Revision{}, false, fmt.Errorf("save revision: generate id: %w", err)
	}
	rev = Revision{
		ID:          id.String(),
		Tree:        tree,
		Seq:         latest.Seq + 1,
		Hash:        hash,
		Message:     message,
		Nodes:       len(doc.Nodes),
		Connections: len(doc.Connections),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions
		(id, tree_name, seq, content_hash, message, node_count, connection_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rev.ID, rev.Tree, rev.Seq, rev.Hash, rev.Message, rev.Nodes, rev.Connections); err != nil {
		return Revision{}, false, fmt.Errorf("save revision: insert revision: %w", err)
	}

	if err := insertNodes(ctx, tx, rev.ID, doc.Nodes); err != nil {
		return Revision{}, false, fmt.Errorf("save revision: %w", err)
	}
	if err := insertConnections(ctx, tx, rev.ID, doc.Connections); err != nil {
		return Revision{}, false, fmt.Errorf("save revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, false, fmt.Errorf("save revision: commit: %w", err)
	}

	s.logger.Info("revision saved",
		"tree", tree, "revision", rev.ID, "seq", rev.Seq, "nodes", rev.Nodes)
	return rev, true, nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, revisionID string, nodes []document.NodeRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes
		(revision_id, ordinal, node_id, x, y, title, description, image_data, unlocked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		var image sql.NullString
		if n.ImageData != nil {
			image = sql.NullString{String: *n.ImageData, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			revisionID, i, n.ID, n.X, n.Y, n.Title, n.Description, image, n.Unlocked,
		); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}
	return nil
}

func insertConnections(ctx context.Context, tx *sql.Tx, revisionID string, conns []document.ConnectionRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connections (revision_id, ordinal, from_id, to_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare connection insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range conns {
		if _, err := stmt.ExecContext(ctx, revisionID, i, c.FromID, c.ToID); err != nil {
			return fmt.Errorf("insert connection %d->%d: %w", c.FromID, c.ToID, err)
		}
	}
	return nil
}

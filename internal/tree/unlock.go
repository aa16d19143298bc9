package tree

import (
	"fmt"
	"strings"
)

// CanUnlock reports whether every immediate predecessor of id is unlocked.
// A node without incoming edges is always unlockable.
func (s *Store) CanUnlock(id NodeID) (bool, error) {
	blockers, err := s.Blockers(id)
	if err != nil {
		return false, err
	}
	return len(blockers) == 0, nil
}

// Blockers returns the locked immediate predecessors of id in edge order.
// A predecessor connected by duplicate edges is listed once.
func (s *Store) Blockers(id NodeID) ([]NodeID, error) {
	if _, ok := s.nodes[id]; !ok {
		return nil, nodeNotFound(id)
	}
	var blockers []NodeID
	seen := make(map[NodeID]bool)
	for _, eid := range s.incoming[id] {
		from := s.edges[eid].From
		if seen[from] {
			continue
		}
		seen[from] = true
		if !s.nodes[from].Unlocked {
			blockers = append(blockers, from)
		}
	}
	return blockers, nil
}

// Unlock marks id unlocked when its prerequisites are met.
//
// pulse is true only when the node actually transitioned; the change batch
// then carries the same hint. Unlocking an unlocked node is a no-op that
// emits nothing and never fails, even if a predecessor was locked since.
func (s *Store) Unlock(id NodeID) (pulse bool, err error) {
	n, ok := s.nodes[id]
	if !ok {
		return false, nodeNotFound(id)
	}
	if n.Unlocked {
		return false, nil
	}

	blockers, err := s.Blockers(id)
	if err != nil {
		return false, err
	}
	if len(blockers) > 0 {
		return false, &Error{
			Code:    CodePrerequisitesNotMet,
			Message: fmt.Sprintf("node %d is blocked by locked node(s) %s", id, joinIDs(blockers)),
			NodeID:  id,
		}
	}

	n.Unlocked = true
	s.emit(Change{Kind: UnlockChanged, NodeID: id, Unlocked: true, Pulse: true})
	s.flush()
	return true, nil
}

// Lock marks id locked without looking at its prerequisites or dependents.
// Nodes already unlocked downstream stay unlocked.
func (s *Store) Lock(id NodeID) error {
	n, ok := s.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	if !n.Unlocked {
		return nil
	}
	n.Unlocked = false
	s.emit(Change{Kind: UnlockChanged, NodeID: id, Unlocked: false})
	s.flush()
	return nil
}

func joinIDs(ids []NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

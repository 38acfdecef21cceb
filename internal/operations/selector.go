package operations

import (
	"sort"
	"strings"

	"todosync/backend"
	"todosync/internal/utils"
)

// ShortIDLength is how many id characters the list view prints
const ShortIDLength = 8

// ShortID returns the displayed prefix of id
func ShortID(id string) string {
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}

// FindByID resolves ref to one task. An exact id wins; otherwise ref must be
// a case-insensitive prefix of exactly one id.
func FindByID(tasks []backend.Task, ref string) (backend.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return backend.Task{}, utils.ErrTaskNotFound(ref)
	}

	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
	}

	lower := strings.ToLower(ref)
	var matches []backend.Task
	for _, t := range tasks {
		if strings.HasPrefix(strings.ToLower(t.ID), lower) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return backend.Task{}, utils.ErrTaskNotFound(ref)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, t := range matches {
			ids[i] = t.ID
		}
		sort.Strings(ids)
		return backend.Task{}, utils.ErrAmbiguousID(ref, ids)
	}
}

// CompleteIDs returns the short ids of tasks starting with prefix, for shell
// completion. Done tasks are listed only when includeDone is set.
func CompleteIDs(tasks []backend.Task, prefix string, includeDone bool) []string {
	lower := strings.ToLower(prefix)
	var out []string
	for _, t := range tasks {
		if t.IsDone && !includeDone {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(t.ID), lower) {
			continue
		}
		id := ShortID(t.ID)
		if len(prefix) >= ShortIDLength {
			id = t.ID
		}
		out = append(out, id+"\t"+t.Text)
	}
	return out
}

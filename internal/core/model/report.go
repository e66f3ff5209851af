package model

// SkipNotice describes a candidate dropped during normalization.
type SkipNotice struct {
	BatchID    string `json:"batch_id"`
	Index      int    `json:"index"`
	EntityType string `json:"entity_type"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

// ChangeReport summarizes one merge step, or a running total of several.
// It is informational only; nothing downstream branches on it.
type ChangeReport struct {
	BatchID          string       `json:"batch_id,omitempty"`
	Added            int          `json:"added"`
	Modified         int          `json:"modified"`
	RemovalSuggested int          `json:"removal_suggested"`
	Skipped          int          `json:"skipped"`
	Removed          int          `json:"removed"`
	AddedKeys        []Key        `json:"added_keys,omitempty"`
	ModifiedKeys     []Key        `json:"modified_keys,omitempty"`
	RemovalKeys      []Key        `json:"removal_keys,omitempty"`
	RemovedKeys      []Key        `json:"removed_keys,omitempty"`
	Skips            []SkipNotice `json:"skips,omitempty"`
}

func (r *ChangeReport) RecordAdded(k Key) {
	r.Added++
	r.AddedKeys = append(r.AddedKeys, k)
}

func (r *ChangeReport) RecordModified(k Key) {
	r.Modified++
	r.ModifiedKeys = append(r.ModifiedKeys, k)
}

func (r *ChangeReport) RecordRemovalSuggested(k Key) {
	r.RemovalSuggested++
	r.RemovalKeys = append(r.RemovalKeys, k)
}

func (r *ChangeReport) RecordRemoved(k Key) {
	r.Removed++
	r.RemovedKeys = append(r.RemovedKeys, k)
}

func (r *ChangeReport) RecordSkipped(n SkipNotice) {
	r.Skipped++
	r.Skips = append(r.Skips, n)
}

// Accumulate folds o into r. The batch ID of r is left alone.
func (r *ChangeReport) Accumulate(o ChangeReport) {
	r.Added += o.Added
	r.Modified += o.Modified
	r.RemovalSuggested += o.RemovalSuggested
	r.Skipped += o.Skipped
	r.Removed += o.Removed
	r.AddedKeys = append(r.AddedKeys, o.AddedKeys...)
	r.ModifiedKeys = append(r.ModifiedKeys, o.ModifiedKeys...)
	r.RemovalKeys = append(r.RemovalKeys, o.RemovalKeys...)
	r.RemovedKeys = append(r.RemovedKeys, o.RemovedKeys...)
	r.Skips = append(r.Skips, o.Skips...)
}

// IsZero reports whether the step changed nothing and skipped nothing.
func (r ChangeReport) IsZero() bool {
	return r.Added == 0 && r.Modified == 0 && r.RemovalSuggested == 0 &&
		r.Skipped == 0 && r.Removed == 0
}

// AffectedKeys lists added, modified and flagged keys in that order.
func (r ChangeReport) AffectedKeys() []Key {
	out := make([]Key, 0, len(r.AddedKeys)+len(r.ModifiedKeys)+len(r.RemovalKeys))
	out = append(out, r.AddedKeys...)
	out = append(out, r.ModifiedKeys...)
	return append(out, r.RemovalKeys...)
}

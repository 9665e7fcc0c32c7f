package domain

// Clone returns a deep copy of the session. Observers and snapshot writers
// work on copies so the store keeps exclusive ownership of the live state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		out.Tasks[i] = t
		out.Tasks[i].Files = append([]string(nil), t.Files...)
	}
	out.Delegations = append([]DelegatedWork(nil), s.Delegations...)
	out.Design = s.Design.Clone()
	return &out
}

// Clone returns a deep copy of the design document, or nil.
func (d *DesignDocument) Clone() *DesignDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.Decisions = append([]string(nil), d.Decisions...)
	out.Deferred = append([]string(nil), d.Deferred...)
	return &out
}

package models

// Member represents one person splitting bills.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string `json:"id"`

	// Name is the display name. It is also the key used to unify the same
	// person across folders, since each folder keeps its own member records.
	Name string `json:"name"`

	// Color is a categorical display tag (e.g. "#10b981").
	Color string `json:"color"`
}

// CloneMembers returns a copy of members that shares no memory with the input.
func CloneMembers(members []Member) []Member {
	if members == nil {
		return nil
	}
	out := make([]Member, len(members))
	copy(out, members)
	return out
}

// MemberIDs returns the ids of members in order.
func MemberIDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

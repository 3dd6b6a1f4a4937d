package model

// Organization is a partner organization that may receive shared client data.
type Organization struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	IsActive          bool   `json:"isActive"`
	IsOperatingAgency bool   `json:"isOperatingAgency"`
}

// ListResponse is the participating roster.
type ListResponse struct {
	Data []Organization `json:"data"`
}

// IDs returns the ids of orgs in roster order.
func IDs(orgs []Organization) []int64 {
	ids := make([]int64, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	return ids
}

package catalog

// Procedure is a billable catalog entry. The catalog is read-only at runtime;
// it is seeded by migration (postgres) or by NewProcedureRepoMem.
type Procedure struct {
	ID          int64   `json:"procedure_id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// DefaultProcedures is the starter catalog shipped with the clinic.
func DefaultProcedures() []Procedure {
	return []Procedure{
		{ID: 1, Code: "P001", Name: "Oral Exam", Description: "Routine oral checkup", Price: 500},
		{ID: 2, Code: "P002", Name: "Scaling", Description: "Teeth cleaning", Price: 1500},
		{ID: 3, Code: "P003", Name: "Filling", Description: "Composite filling", Price: 3000},
		{ID: 4, Code: "P004", Name: "Root Canal", Description: "RCT Anterior", Price: 8000},
	}
}

package domain

// CustomerRatingNone is the sentinel stored until a customer rates a project.
const CustomerRatingNone = "Нет"

type Project struct {
	Name                string   `json:"name"`
	ID                  string   `json:"id"`
	Employees           []string `json:"employees"`
	Goals               []Goal   `json:"goals"`
	Dependencies        []string `json:"dependencies"`
	StartDate           string   `json:"startDate"`
	EndDate             string   `json:"endDate"`
	Rating              float64  `json:"rating"`
	CustomerRating      any      `json:"customerRating"`
	Deadline            string   `json:"deadline"`
	FinalCompletionDate string   `json:"finalCompletionDate,omitempty"`
}

// Goal is a sub-task embedded in a project. Goals are looked up by name;
// names are not unique, the first match wins.
type Goal struct {
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Selected bool   `json:"selected" required:"false"`
	Deadline string `json:"deadline" required:"false"`
}

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role"`
}

type Status struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

package http

import (
	"time"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

type definitionRequest struct {
	Name          string     `json:"name"`
	Amount        flexString `json:"amount"`
	Type          flexString `json:"type"`
	Frequency     flexString `json:"frequency"`
	PaymentMethod flexString `json:"payment_method"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`

	// outcomes only
	Category   flexString `json:"category"`
	Cuotas     flexString `json:"cuotas"`
	Note       string     `json:"note"`
	Attachment string     `json:"attachment"`
	Status     flexString `json:"status"`
}

// definition converts the request and validates it, reporting parse and
// domain problems together.
func (req definitionRequest) definition(dir core.Direction, id int64) (core.Definition, error) {
	p := newFieldParser()
	d := core.Definition{
		ID:            id,
		Direction:     dir,
		Name:          sanitizeInput(req.Name),
		Amount:        p.money("amount", req.Amount),
		Kind:          core.Kind(req.Type),
		Frequency:     core.Frequency(req.Frequency),
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		StartDate:     p.date("start_date", req.StartDate),
		EndDate:       p.date("end_date", req.EndDate),
	}
	if dir == core.Outcome {
		d.Category = core.Category(req.Category)
		d.Cuotas = req.Cuotas.String()
		d.Note = sanitizeInput(req.Note)
		d.Attachment = sanitizeInput(req.Attachment)
		d.Status = core.Status(req.Status)
		if id > 0 && d.Status == "" {
			d.Status = core.StatusPending
		}
	}
	if err := p.merge(d.Validate()); err != nil {
		return core.Definition{}, err
	}
	return d, nil
}

type statusRequest struct {
	Status  flexString `json:"status"`
	NewDate string     `json:"newDate"`
}

func (req statusRequest) change() (services.StatusChange, error) {
	p := newFieldParser()
	c := services.StatusChange{
		Status:  core.Status(req.Status),
		NewDate: p.date("newDate", req.NewDate),
	}
	if err := p.merge(c.Validate()); err != nil {
		return services.StatusChange{}, err
	}
	return c, nil
}

type groupRequest struct {
	Name string `json:"name"`
}

type taskRequest struct {
	Name          string     `json:"name"`
	Amount        flexString `json:"amount"`
	PaymentMethod flexString `json:"payment_method"`
	Status        flexString `json:"status"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
}

func (req taskRequest) task() (core.Task, error) {
	p := newFieldParser()
	t := core.Task{
		Name:          sanitizeInput(req.Name),
		Amount:        p.money("amount", req.Amount),
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		Status:        core.Status(req.Status),
		StartDate:     p.date("start_date", req.StartDate).Time,
		EndDate:       p.date("end_date", req.EndDate),
	}
	if err := p.merge(t.Validate()); err != nil {
		return core.Task{}, err
	}
	return t, nil
}

type definitionResponse struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Name          string     `json:"name"`
	Amount        core.Money `json:"amount"`
	Type          string     `json:"type"`
	Frequency     string     `json:"frequency"`
	PaymentMethod string     `json:"payment_method"`
	StartDate     core.Date  `json:"start_date"`
	EndDate       core.Date  `json:"end_date"`
	Category      string     `json:"category,omitempty"`
	Cuotas        string     `json:"cuotas,omitempty"`
	Note          string     `json:"note,omitempty"`
	Attachment    string     `json:"attachment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newDefinitionResponse(d core.Definition) definitionResponse {
	return definitionResponse{
		ID:            d.ID,
		UserID:        d.OwnerID,
		Name:          d.Name,
		Amount:        d.Amount,
		Type:          string(d.Kind),
		Frequency:     string(d.Frequency),
		PaymentMethod: string(d.PaymentMethod),
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		Category:      string(d.Category),
		Cuotas:        d.Cuotas,
		Note:          d.Note,
		Attachment:    d.Attachment,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type createdDefinitionResponse struct {
	definitionResponse
	Item itemResponse `json:"item"`
}

type summaryResponse struct {
	definitionResponse
	Status      string     `json:"status"`
	PaymentDate *time.Time `json:"payment_date"`
	TotalAmount core.Money `json:"total_amount"`
}

func newSummaryResponse(s core.DefinitionSummary) summaryResponse {
	out := summaryResponse{
		definitionResponse: newDefinitionResponse(s.Definition),
		Status:             string(s.LatestStatus),
		TotalAmount:        s.TotalAmount,
	}
	if !s.LatestPaymentDate.IsZero() {
		pd := s.LatestPaymentDate.UTC()
		out.PaymentDate = &pd
	}
	return out
}

type incomeListResponse struct {
	Fixed   []summaryResponse `json:"fixed"`
	Dynamic []summaryResponse `json:"dynamic"`
}

type itemResponse struct {
	ID           int64      `json:"id"`
	DefinitionID int64      `json:"definition_id"`
	Amount       core.Money `json:"amount"`
	PaymentDate  time.Time  `json:"payment_date"`
	Status       string     `json:"status"`
	Type         string     `json:"type"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newItemResponse(it core.Item) itemResponse {
	return itemResponse{
		ID:           it.ID,
		DefinitionID: it.DefinitionID,
		Amount:       it.Amount,
		PaymentDate:  it.PaymentDate.UTC(),
		Status:       string(it.Status),
		Type:         string(it.Kind),
		CreatedAt:    it.CreatedAt,
	}
}

type groupResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newGroupResponse(g core.Group) groupResponse {
	return groupResponse{ID: g.ID, UserID: g.OwnerID, Name: g.Name, CreatedAt: g.CreatedAt}
}

type taskResponse struct {
	ID            int64      `json:"id"`
	GroupID       int64      `json:"group_id"`
	Name          string     `json:"name"`
	Amount        core.Money `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       core.Date  `json:"end_date"`
	CreatedAt     time.Time  `json:"created_at"`
}

func newTaskResponse(t core.Task) taskResponse {
	return taskResponse{
		ID:            t.ID,
		GroupID:       t.GroupID,
		Name:          t.Name,
		Amount:        t.Amount,
		PaymentMethod: string(t.PaymentMethod),
		Status:        string(t.Status),
		StartDate:     t.StartDate.UTC(),
		EndDate:       t.EndDate,
		CreatedAt:     t.CreatedAt,
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

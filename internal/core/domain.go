package core

import (
	"strings"
	"time"
)

// Recurrence frequencies. Wire values are the numeric codes used by clients.
const (
	SemiAnnual Frequency = "0"
	Quarterly  Frequency = "1"
	Monthly    Frequency = "2"
	Annual     Frequency = "3"
	Unique     Frequency = "4"
)

// Definition kinds.
const (
	Fixed   Kind = "0"
	Dynamic Kind = "1"
)

// Payment statuses shared by items and tasks.
const (
	StatusPending  Status = "0"
	StatusFinished Status = "1"
	StatusOverdue  Status = "2"
)

const (
	Scotiabank  PaymentMethod = "0"
	Banreservas PaymentMethod = "1"
	Popular     PaymentMethod = "2"
	Emergency   PaymentMethod = "3"
	Savings     PaymentMethod = "4"
)

const (
	CategoryLoans         Category = "0"
	CategoryServices      Category = "1"
	CategoryFood          Category = "2"
	CategoryTransport     Category = "3"
	CategoryHealth        Category = "4"
	CategoryEducation     Category = "5"
	CategoryEntertainment Category = "6"
	CategoryOther         Category = "7"
)

const (
	Income  Direction = "income"
	Outcome Direction = "outcome"
)

const (
	Project  GroupKind = "project"
	Activity GroupKind = "activity"
)

type (
	Frequency     string
	Kind          string
	Status        string
	PaymentMethod string
	Category      string

	// Direction tells incomes and outcomes apart. Both share the same
	// definition/item shape and are stored in sibling tables.
	Direction string

	// GroupKind tells projects and activities apart.
	GroupKind string

	// Principal is the authenticated caller every owner-scoped operation runs for.
	Principal struct {
		UserID int64
	}

	// Definition is a recurring or one-time income/outcome obligation.
	Definition struct {
		ID            int64
		Direction     Direction
		OwnerID       int64
		Name          string
		Amount        Money
		Category      Category // outcomes only
		PaymentMethod PaymentMethod
		Frequency     Frequency
		Kind          Kind
		StartDate     Date
		EndDate       Date // zero when open-ended
		Cuotas        string
		Note          string
		Attachment    string
		Status        Status // requested status of the first outcome item
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Item is one materialized installment of a Definition.
	Item struct {
		ID           int64
		DefinitionID int64
		Amount       Money
		PaymentDate  time.Time
		Status       Status
		Kind         Kind
		ExportedAt   time.Time // zero until written to the ledger
		CreatedAt    time.Time
	}

	// Group is a project or an activity owning a list of tasks.
	Group struct {
		ID        int64
		Kind      GroupKind
		OwnerID   int64
		Name      string
		CreatedAt time.Time
	}

	// Task is a one-off payment inside a Group. It has no item history.
	Task struct {
		ID            int64
		GroupID       int64
		Name          string
		Amount        Money
		PaymentMethod PaymentMethod
		Status        Status
		StartDate     time.Time
		EndDate       Date
		CreatedAt     time.Time
	}

	// DefinitionSummary is a Definition with values derived from its items.
	DefinitionSummary struct {
		Definition
		LatestStatus      Status
		LatestPaymentDate time.Time
		TotalAmount       Money
	}
)

// MonthsFor returns the interval in months between two installments.
// Unique definitions have no interval.
func (f Frequency) MonthsFor() int {
	switch f {
	case SemiAnnual:
		return 6
	case Quarterly:
		return 3
	case Monthly:
		return 1
	case Annual:
		return 12
	case Unique:
		return 0
	default:
		return 0
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case SemiAnnual, Quarterly, Monthly, Annual, Unique:
		return true
	}
	return false
}

// String returns a readable name for logs.
func (f Frequency) String() string {
	switch f {
	case SemiAnnual:
		return "semi-annual"
	case Quarterly:
		return "quarterly"
	case Monthly:
		return "monthly"
	case Annual:
		return "annual"
	case Unique:
		return "unique"
	default:
		return "unknown(" + string(f) + ")"
	}
}

func (k Kind) Valid() bool {
	return k == Fixed || k == Dynamic
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusFinished, StatusOverdue:
		return true
	}
	return false
}

func (p PaymentMethod) Valid() bool {
	switch p {
	case Scotiabank, Banreservas, Popular, Emergency, Savings:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryLoans, CategoryServices, CategoryFood, CategoryTransport,
		CategoryHealth, CategoryEducation, CategoryEntertainment, CategoryOther:
		return true
	}
	return false
}

func (d Direction) Valid() bool {
	return d == Income || d == Outcome
}

// GeneratedStatus is the status given to items the Generator materializes:
// incomes are assumed received, outcomes are assumed owed.
func (d Direction) GeneratedStatus() Status {
	if d == Income {
		return StatusFinished
	}
	return StatusPending
}

func (g GroupKind) Valid() bool {
	return g == Project || g == Activity
}

// Recurring reports whether the Generator should look at this definition.
func (d Definition) Recurring() bool {
	return d.Kind == Dynamic && d.Frequency.MonthsFor() > 0
}

// ActiveAt reports whether the definition's validity window covers t.
func (d Definition) ActiveAt(t time.Time) bool {
	if !d.StartDate.IsEmpty() && d.StartDate.After(t) {
		return false
	}
	if !d.EndDate.IsEmpty() && d.EndDate.EndOfDay().Before(t) {
		return false
	}
	return true
}

// FirstItem builds the item materialized together with the definition.
func (d Definition) FirstItem(now time.Time) Item {
	status := d.Status
	if d.Direction == Income {
		status = StatusPending
		if now.After(d.StartDate.Time) {
			status = StatusFinished
		}
	}
	return Item{
		Amount:      d.Amount,
		PaymentDate: d.StartDate.Time,
		Status:      status,
		Kind:        d.Kind,
	}
}

// Validate checks every field and reports all problems at once.
func (d Definition) Validate() error {
	v := NewValidationError()

	name := strings.TrimSpace(d.Name)
	if name == "" {
		v.Add("name", "The name field is required.")
	} else if len(name) > 255 {
		v.Add("name", "The name field must not be greater than 255 characters.")
	}
	if err := d.Amount.Validate(); err != nil {
		v.Add("amount", "The amount field must be at least 0.")
	}
	if !d.Kind.Valid() {
		v.Add("type", enumMessage("type"))
	}
	if !d.Frequency.Valid() {
		v.Add("frequency", enumMessage("frequency"))
	}
	if !d.PaymentMethod.Valid() {
		v.Add("payment_method", enumMessage("payment_method"))
	}
	if err := d.StartDate.Validate(); err != nil {
		v.Add("start_date", "The start date field is required.")
	}
	if !d.EndDate.IsEmpty() && !d.StartDate.IsEmpty() && d.EndDate.Before(d.StartDate.Time) {
		v.Add("end_date", "The end date must be a date after or equal to start date.")
	}

	switch d.Direction {
	case Outcome:
		if !d.Category.Valid() {
			v.Add("category", enumMessage("category"))
		}
		if strings.TrimSpace(d.Cuotas) == "" {
			v.Add("cuotas", "The cuotas field is required.")
		}
		if !d.Status.Valid() {
			v.Add("status", enumMessage("status"))
		}
	case Income:
	default:
		v.Add("direction", "unknown direction")
	}

	return v.Err()
}

// Validate checks a task before it is stored.
func (t Task) Validate() error {
	v := NewValidationError()

	name := strings.TrimSpace(t.Name)
	if name == "" {
		v.Add("name", "The name field is required.")
	} else if len(name) > 255 {
		v.Add("name", "The name field must not be greater than 255 characters.")
	}
	if err := t.Amount.Validate(); err != nil {
		v.Add("amount", "The amount field must be at least 0.")
	}
	if !t.PaymentMethod.Valid() {
		v.Add("payment_method", enumMessage("payment_method"))
	}
	if !t.Status.Valid() {
		v.Add("status", enumMessage("status"))
	}
	if t.StartDate.IsZero() {
		v.Add("start_date", "The start date field is required.")
	}
	if t.EndDate.IsEmpty() {
		v.Add("end_date", "The end date field is required.")
	}

	return v.Err()
}

// Validate checks a group before it is stored.
func (g Group) Validate() error {
	v := NewValidationError()
	name := strings.TrimSpace(g.Name)
	if name == "" {
		v.Add("name", "The name field is required.")
	} else if len(name) > 255 {
		v.Add("name", "The name field must not be greater than 255 characters.")
	}
	if !g.Kind.Valid() {
		v.Add("kind", "unknown group kind")
	}
	return v.Err()
}

func enumMessage(field string) string {
	return "The " + field + " is not a valid enum value."
}

// LedgerEntry is an item joined with its definition, as exported to the
// external ledger.
type LedgerEntry struct {
	Direction      Direction
	ItemID         int64
	DefinitionID   int64
	OwnerID        int64
	DefinitionName string
	Amount         Money
	PaymentDate    time.Time
	Status         Status
	PaymentMethod  PaymentMethod
	ExportedAt     time.Time // zero until written to the ledger
}

// ItemAction names what happened to an item.
type ItemAction string

const (
	ItemCreated   ItemAction = "created"
	ItemGenerated ItemAction = "generated"
	ItemReopened  ItemAction = "reopened"
	ItemStatusSet ItemAction = "status_changed"
)

// ItemEvent announces an item insert or status change to downstream consumers.
type ItemEvent struct {
	Direction    Direction
	Action       ItemAction
	ItemID       int64
	DefinitionID int64
}

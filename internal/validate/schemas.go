package validate

// Input schemas. Validation constraints live in the struct tags and the
// sanitize step is part of the same declaration, so "valid" and "safe to
// store" are never decided in two disconnected places: a successful
// ValidateAndSanitize always returns already-sanitized data.

// UserRegistration is the signup payload.
type UserRegistration struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (u *UserRegistration) sanitize() {
	u.Name = StripTags(u.Name)
}

// ChatMessage is a single message sent to the trip-planning assistant.
type ChatMessage struct {
	Content   string `json:"content" validate:"required,min=1,max=4000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

func (m *ChatMessage) sanitize() {
	m.Content = StripTags(m.Content)
}

// Itinerary is the create/update payload for a trip itinerary.
type Itinerary struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Destination string `json:"destination" validate:"required,min=1,max=100"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Category    string `json:"category" validate:"omitempty,oneof=adventure culture relaxation food nature business other"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

func (i *Itinerary) sanitize() {
	i.Title = StripTags(i.Title)
	i.Destination = StripTags(i.Destination)
	i.Notes = StripTags(i.Notes)
}

// SearchQuery is the destination/itinerary search payload.
type SearchQuery struct {
	Query string `json:"query" validate:"required,min=1,max=200"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

func (q *SearchQuery) sanitize() {
	q.Query = StripTags(q.Query)
}

// FileUpload describes an attachment upload (trip documents, photos).
type FileUpload struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp application/pdf"`
	Size        int64  `json:"size" validate:"required,min=1,max=10485760"`
}

func (f *FileUpload) sanitize() {
	f.FileName = StripTags(f.FileName)
}

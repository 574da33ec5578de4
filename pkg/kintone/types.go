package kintone

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// System field codes present on every record.
const (
	FieldID       = "$id"
	FieldRevision = "$revision"
)

// Field is one field value of a record. Type is set by the server on reads and
// may be left empty on writes.
type Field struct {
	Type  string      `json:"type,omitempty"  yaml:"type,omitempty"`
	Value interface{} `json:"value"           yaml:"value"`
}

// Record maps field codes to field values.
type Record map[string]Field

// ID returns the system identifier of the record, or "" if the record was
// fetched without the $id field.
func (r Record) ID() string {
	return r.StringValue(FieldID)
}

// Revision returns the revision of the record, or "" if absent.
func (r Record) Revision() string {
	return r.StringValue(FieldRevision)
}

// StringValue returns the value of a scalar field as a string.
func (r Record) StringValue(code string) string {
	field, ok := r[code]
	if !ok || field.Value == nil {
		return ""
	}

	switch value := field.Value.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return fmt.Sprint(value)
	}
}

// NumericID parses the $id field.
func (r Record) NumericID() (int64, error) {
	id := r.ID()
	if id == "" {
		return 0, ErrRecordIDMissing
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing record id %q: %w", id, err)
	}

	return n, nil
}

// UpdateKey identifies a record by a unique non-system field.
type UpdateKey struct {
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// Entity is a user, group, or organization reference.
type Entity struct {
	Code string `json:"code"           yaml:"code"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// GetRecordRequest fetches one record.
type GetRecordRequest struct {
	App string `json:"app"`
	ID  string `json:"id"`
}

// GetRecordResponse wraps a single record.
type GetRecordResponse struct {
	Record Record `json:"record"`
}

// GetRecordsRequest fetches one page of records.
type GetRecordsRequest struct {
	App        string   `json:"app"`
	Fields     []string `json:"fields,omitempty"`
	Query      string   `json:"query,omitempty"`
	TotalCount bool     `json:"totalCount,omitempty"`
}

// GetRecordsResponse is one page of records.
type GetRecordsResponse struct {
	Records    []Record `json:"records"`
	TotalCount string   `json:"totalCount"`
}

// Total parses TotalCount. ok is false when the count was not requested.
func (r *GetRecordsResponse) Total() (int, bool) {
	return parseCount(r.TotalCount)
}

// AddRecordRequest adds one record.
type AddRecordRequest struct {
	App    string `json:"app"`
	Record Record `json:"record,omitempty"`
}

// AddRecordResponse is the id and revision of an added record.
type AddRecordResponse struct {
	ID       string `json:"id"       yaml:"id"`
	Revision string `json:"revision" yaml:"revision"`
}

// UpdateRecordRequest updates one record by ID or UpdateKey. An empty Revision
// skips the optimistic-concurrency check.
type UpdateRecordRequest struct {
	App       string     `json:"app"`
	ID        string     `json:"id,omitempty"`
	UpdateKey *UpdateKey `json:"updateKey,omitempty"`
	Record    Record     `json:"record,omitempty"`
	Revision  string     `json:"revision,omitempty"`
}

// UpdateRecordResponse carries the revision after the update.
type UpdateRecordResponse struct {
	Revision string `json:"revision" yaml:"revision"`
}

// AddRecordsRequest adds up to 100 records.
type AddRecordsRequest struct {
	App     string   `json:"app"`
	Records []Record `json:"records"`
}

// AddRecordsResponse lists ids and revisions in input order.
type AddRecordsResponse struct {
	IDs       []string `json:"ids"       yaml:"ids"`
	Revisions []string `json:"revisions" yaml:"revisions"`
}

// UpdateRecordEntry is one record of a multi-record update.
type UpdateRecordEntry struct {
	ID        string     `json:"id,omitempty"        yaml:"id,omitempty"`
	UpdateKey *UpdateKey `json:"updateKey,omitempty" yaml:"updateKey,omitempty"`
	Record    Record     `json:"record,omitempty"    yaml:"record,omitempty"`
	Revision  string     `json:"revision,omitempty"  yaml:"revision,omitempty"`
}

// UpdateRecordsRequest updates up to 100 records.
type UpdateRecordsRequest struct {
	App     string              `json:"app"`
	Records []UpdateRecordEntry `json:"records"`
}

// RecordRevision pairs a record id with its new revision.
type RecordRevision struct {
	ID       string `json:"id"       yaml:"id"`
	Revision string `json:"revision" yaml:"revision"`
}

// UpdateRecordsResponse lists the new revisions in input order.
type UpdateRecordsResponse struct {
	Records []RecordRevision `json:"records" yaml:"records"`
}

// DeleteRecordsRequest deletes up to 100 records. Revisions, when set, must
// align with IDs.
type DeleteRecordsRequest struct {
	App       string   `json:"app"`
	IDs       []string `json:"ids"`
	Revisions []string `json:"revisions,omitempty"`
}

// DeleteRecordsResponse is empty on success.
type DeleteRecordsResponse struct{}

// UpdateRecordAssigneesRequest replaces the process management assignees.
type UpdateRecordAssigneesRequest struct {
	App       string   `json:"app"`
	ID        string   `json:"id"`
	Assignees []string `json:"assignees"`
	Revision  string   `json:"revision,omitempty"`
}

// UpdateRecordStatusRequest runs a process management action on one record.
type UpdateRecordStatusRequest struct {
	App      string `json:"app"`
	ID       string `json:"id"`
	Action   string `json:"action"`
	Assignee string `json:"assignee,omitempty"`
	Revision string `json:"revision,omitempty"`
}

// RecordStatusUpdate is one entry of a multi-record status change.
type RecordStatusUpdate struct {
	ID       string `json:"id"                 yaml:"id"`
	Action   string `json:"action"             yaml:"action"`
	Assignee string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// UpdateRecordsStatusRequest runs actions on up to 100 records.
type UpdateRecordsStatusRequest struct {
	App     string               `json:"app"`
	Records []RecordStatusUpdate `json:"records"`
}

// CreateCursorRequest creates a server-side cursor.
type CreateCursorRequest struct {
	App    string   `json:"app"`
	Fields []string `json:"fields,omitempty"`
	Query  string   `json:"query,omitempty"`
	Size   int      `json:"size,omitempty"`
}

// CreateCursorResponse carries the cursor id and the total match count.
type CreateCursorResponse struct {
	ID         string `json:"id"`
	TotalCount string `json:"totalCount"`
}

// Total parses TotalCount.
func (r *CreateCursorResponse) Total() (int, bool) {
	return parseCount(r.TotalCount)
}

// GetRecordsByCursorResponse is one cursor page.
type GetRecordsByCursorResponse struct {
	Records []Record `json:"records"`
	Next    bool     `json:"next"`
}

// BulkSubRequest is one operation inside a bulkRequest envelope. API is the
// endpoint name relative to the API root (for example "records.json"); the
// transport expands it to a full path.
type BulkSubRequest struct {
	Method  string      `json:"method"`
	API     string      `json:"api"`
	Payload interface{} `json:"payload"`
}

// BulkRequestResponse holds one raw result per sub-request.
type BulkRequestResponse struct {
	Results []json.RawMessage `json:"results"`
}

// App is app metadata.
type App struct {
	AppID       string    `json:"appId"       yaml:"appId"`
	Code        string    `json:"code"        yaml:"code"`
	Name        string    `json:"name"        yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	SpaceID     string    `json:"spaceId"     yaml:"spaceId"`
	ThreadID    string    `json:"threadId"    yaml:"threadId"`
	CreatedAt   time.Time `json:"createdAt"   yaml:"createdAt"`
	Creator     Entity    `json:"creator"     yaml:"creator"`
	ModifiedAt  time.Time `json:"modifiedAt"  yaml:"modifiedAt"`
	Modifier    Entity    `json:"modifier"    yaml:"modifier"`
}

// FieldProperty describes one form field.
type FieldProperty struct {
	Type     string `json:"type"               yaml:"type"`
	Code     string `json:"code"               yaml:"code"`
	Label    string `json:"label"              yaml:"label"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty"   yaml:"unique,omitempty"`
}

// FormFields is the field layout of an app.
type FormFields struct {
	Properties map[string]FieldProperty `json:"properties" yaml:"properties"`
	Revision   string                   `json:"revision"   yaml:"revision"`
}

// Space is space metadata.
type Space struct {
	ID             string `json:"id"             yaml:"id"`
	Name           string `json:"name"           yaml:"name"`
	DefaultThread  string `json:"defaultThread"  yaml:"defaultThread"`
	IsPrivate      bool   `json:"isPrivate"      yaml:"isPrivate"`
	Creator        Entity `json:"creator"        yaml:"creator"`
	Modifier       Entity `json:"modifier"       yaml:"modifier"`
	MemberCount    string `json:"memberCount"    yaml:"memberCount"`
	Body           string `json:"body"           yaml:"body"`
	UseMultiThread bool   `json:"useMultiThread" yaml:"useMultiThread"`
	IsGuest        bool   `json:"isGuest"        yaml:"isGuest"`
	AttachedApps   []App  `json:"attachedApps"   yaml:"attachedApps"`
}

// Mention targets a user, group, or organization in a comment.
type Mention struct {
	Code string `json:"code" yaml:"code"`
	Type string `json:"type" yaml:"type"`
}

// Comment is a record comment.
type Comment struct {
	ID        string    `json:"id"        yaml:"id"`
	Text      string    `json:"text"      yaml:"text"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Creator   Entity    `json:"creator"   yaml:"creator"`
	Mentions  []Mention `json:"mentions"  yaml:"mentions"`
}

// CommentContent is the body of a new comment.
type CommentContent struct {
	Text     string    `json:"text"`
	Mentions []Mention `json:"mentions,omitempty"`
}

// GetRecordCommentsRequest lists comments of one record.
type GetRecordCommentsRequest struct {
	App    string `json:"app"`
	Record string `json:"record"`
	Order  string `json:"order,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// GetRecordCommentsResponse is one page of comments.
type GetRecordCommentsResponse struct {
	Comments []Comment `json:"comments"`
	Older    bool      `json:"older"`
	Newer    bool      `json:"newer"`
}

// AddRecordCommentRequest posts a comment.
type AddRecordCommentRequest struct {
	App     string         `json:"app"`
	Record  string         `json:"record"`
	Comment CommentContent `json:"comment"`
}

// AddRecordCommentResponse carries the new comment id.
type AddRecordCommentResponse struct {
	ID string `json:"id"`
}

// DeleteRecordCommentRequest removes a comment.
type DeleteRecordCommentRequest struct {
	App     string `json:"app"`
	Record  string `json:"record"`
	Comment string `json:"comment"`
}

// UploadFileResponse carries the key used to attach the file to a record.
type UploadFileResponse struct {
	FileKey string `json:"fileKey"`
}

func parseCount(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return n, true
}

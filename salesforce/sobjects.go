package salesforce

import (
	"context"
	"fmt"
	"strings"
)

// FieldType is a Salesforce field type as reported by describe
// metadata.
type FieldType string

// Field types with no direct scalar representation. Compound fields
// cannot be selected in Bulk API queries.
const (
	FieldTypeAddress  FieldType = "address"
	FieldTypeLocation FieldType = "location"
)

// Compound reports whether the field type is a compound type.
func (t FieldType) Compound() bool {
	return t == FieldTypeAddress || t == FieldTypeLocation
}

// PicklistEntry is one value of a picklist field.
type PicklistEntry struct {
	Active bool   `json:"active"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

// Location is a geolocation compound value.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Address is an address compound value.
type Address struct {
	Location
	Accuracy    string `json:"accuracy,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	State       string `json:"state,omitempty"`
	StateCode   string `json:"stateCode,omitempty"`
	Street      string `json:"street,omitempty"`
}

// Field is the describe metadata for one sObject field.
type Field struct {
	Aggregatable                 bool            `json:"aggregatable"`
	AIPredictionField            bool            `json:"aiPredictionField"`
	AutoNumber                   bool            `json:"autoNumber"`
	ByteLength                   int             `json:"byteLength"`
	Calculated                   bool            `json:"calculated"`
	CascadeDelete                bool            `json:"cascadeDelete"`
	CaseSensitive                bool            `json:"caseSensitive"`
	Createable                   bool            `json:"createable"`
	Custom                       bool            `json:"custom"`
	DefaultedOnCreate            bool            `json:"defaultedOnCreate"`
	DependentPicklist            bool            `json:"dependentPicklist"`
	DeprecatedAndHidden          bool            `json:"deprecatedAndHidden"`
	Digits                       int             `json:"digits"`
	DisplayLocationInDecimal     bool            `json:"displayLocationInDecimal"`
	Encrypted                    bool            `json:"encrypted"`
	ExternalID                   bool            `json:"externalId"`
	Filterable                   bool            `json:"filterable"`
	FormulaTreatNullNumberAsZero bool            `json:"formulaTreatNullNumberAsZero"`
	Groupable                    bool            `json:"groupable"`
	HighScaleNumber              bool            `json:"highScaleNumber"`
	HTMLFormatted                bool            `json:"htmlFormatted"`
	IDLookup                     bool            `json:"idLookup"`
	Label                        string          `json:"label"`
	Length                       int             `json:"length"`
	Name                         string          `json:"name"`
	NameField                    bool            `json:"nameField"`
	NamePointing                 bool            `json:"namePointing"`
	Nillable                     bool            `json:"nillable"`
	Permissionable               bool            `json:"permissionable"`
	PicklistValues               []PicklistEntry `json:"picklistValues"`
	PolymorphicForeignKey        bool            `json:"polymorphicForeignKey"`
	Precision                    int             `json:"precision"`
	QueryByDistance              bool            `json:"queryByDistance"`
	RestrictedDelete             bool            `json:"restrictedDelete"`
	RestrictedPicklist           bool            `json:"restrictedPicklist"`
	Scale                        int             `json:"scale"`
	SearchPrefilterable          bool            `json:"searchPrefilterable"`
	SoapType                     string          `json:"soapType"`
	Sortable                     bool            `json:"sortable"`
	Type                         FieldType       `json:"type"`
	Unique                       bool            `json:"unique"`
	Updateable                   bool            `json:"updateable"`
	WriteRequiresMasterRead      bool            `json:"writeRequiresMasterRead"`
}

// ChildRelationship describes a child sObject relationship.
type ChildRelationship struct {
	CascadeDelete       bool     `json:"cascadeDelete"`
	ChildSObject        string   `json:"childSObject"`
	DeprecatedAndHidden bool     `json:"deprecatedAndHidden"`
	Field               string   `json:"field"`
	JunctionIDListNames []string `json:"junctionIdListNames"`
	JunctionReferenceTo []string `json:"junctionReferenceTo"`
	RelationshipName    string   `json:"relationshipName"`
	RestrictedDelete    bool     `json:"restrictedDelete"`
}

// SObjectURLs are the resource URLs attached to describe metadata.
type SObjectURLs struct {
	ApprovalLayouts  string `json:"approvalLayouts,omitempty"`
	CompactLayouts   string `json:"compactLayouts,omitempty"`
	Describe         string `json:"describe,omitempty"`
	Layouts          string `json:"layouts,omitempty"`
	Listviews        string `json:"listviews,omitempty"`
	QuickActions     string `json:"quickActions,omitempty"`
	RowTemplate      string `json:"rowTemplate,omitempty"`
	SObject          string `json:"sobject,omitempty"`
	UIDetailTemplate string `json:"uiDetailTemplate,omitempty"`
	UIEditTemplate   string `json:"uiEditTemplate,omitempty"`
	UINewRecord      string `json:"uiNewRecord,omitempty"`
}

// SObjectBasic is the abbreviated sObject metadata from the global
// describe.
type SObjectBasic struct {
	Activateable        bool        `json:"activateable"`
	Createable          bool        `json:"createable"`
	Custom              bool        `json:"custom"`
	CustomSetting       bool        `json:"customSetting"`
	DeepCloneable       bool        `json:"deepCloneable"`
	Deletable           bool        `json:"deletable"`
	DeprecatedAndHidden bool        `json:"deprecatedAndHidden"`
	FeedEnabled         bool        `json:"feedEnabled"`
	HasSubtypes         bool        `json:"hasSubtypes"`
	IsInterface         bool        `json:"isInterface"`
	IsSubtype           bool        `json:"isSubtype"`
	Label               string      `json:"label"`
	LabelPlural         string      `json:"labelPlural"`
	Layoutable          bool        `json:"layoutable"`
	Mergeable           bool        `json:"mergeable"`
	MruEnabled          bool        `json:"mruEnabled"`
	Name                string      `json:"name"`
	Queryable           bool        `json:"queryable"`
	Replicateable       bool        `json:"replicateable"`
	Retrieveable        bool        `json:"retrieveable"`
	Searchable          bool        `json:"searchable"`
	Triggerable         bool        `json:"triggerable"`
	Undeletable         bool        `json:"undeletable"`
	Updateable          bool        `json:"updateable"`
	URLs                SObjectURLs `json:"urls"`
}

// SObject is the full describe metadata for one sObject.
type SObject struct {
	SObjectBasic
	CompactLayoutable     bool                `json:"compactLayoutable"`
	Fields                []Field             `json:"fields"`
	ChildRelationships    []ChildRelationship `json:"childRelationships"`
	KeyPrefix             string              `json:"keyPrefix"`
	SearchLayoutable      bool                `json:"searchLayoutable"`
	SObjectDescribeOption string              `json:"sobjectDescribeOption"`
}

// Field returns the named field's metadata, or nil.
func (s *SObject) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// GlobalDescribe is the result of listing all sObjects.
type GlobalDescribe struct {
	Encoding     string         `json:"encoding"`
	MaxBatchSize int            `json:"maxBatchSize"`
	SObjects     []SObjectBasic `json:"sobjects"`
}

// Record is one sObject row with dynamic fields.
type Record map[string]any

// ID returns the record's Id field, if present.
func (r Record) ID() string {
	id, _ := r["Id"].(string)
	return id
}

// SObjectsResource accesses sObject metadata.
type SObjectsResource struct {
	client *Client
}

// SObjects returns the sObject metadata resource.
func (c *Client) SObjects() *SObjectsResource {
	return &SObjectsResource{client: c}
}

// List performs the global describe.
func (r *SObjectsResource) List(ctx context.Context) (*GlobalDescribe, error) {
	path, err := r.client.Path(ctx, "sobjects")
	if err != nil {
		return nil, err
	}
	var result GlobalDescribe
	if err := r.client.DoJSON(ctx, Request{Method: "GET", Path: path + "/"}, &result); err != nil {
		return nil, fmt.Errorf("describe global: %w", err)
	}
	return &result, nil
}

// Describe fetches the full metadata for one sObject. Salesforce
// resolves names case-insensitively; a describe whose returned name
// differs from the requested one is reported as not found.
func (r *SObjectsResource) Describe(ctx context.Context, name string) (*SObject, error) {
	path, err := r.client.Path(ctx, "sobjects")
	if err != nil {
		return nil, err
	}
	var meta SObject
	req := Request{Method: "GET", Path: fmt.Sprintf("%s/%s/describe", path, name)}
	if err := r.client.DoJSON(ctx, req, &meta); err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	if meta.Name != name {
		return nil, fmt.Errorf("%w: %s", ErrSObjectNotFound, name)
	}
	return &meta, nil
}

// Data describes the named sObject and returns a data resource bound
// to its metadata.
func (r *SObjectsResource) Data(ctx context.Context, name string) (*SObjectDataResource, error) {
	meta, err := r.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	return &SObjectDataResource{client: r.client, meta: meta}, nil
}

// SObjectDataResource accesses the records of one sObject.
type SObjectDataResource struct {
	client *Client
	meta   *SObject
}

// Describe returns the metadata the resource was bound with.
func (d *SObjectDataResource) Describe() *SObject {
	return d.meta
}

// rowPath resolves the record URL for an id from the describe
// rowTemplate.
func (d *SObjectDataResource) rowPath(id string) string {
	return strings.Replace(d.meta.URLs.RowTemplate, "{ID}", id, 1)
}

// Get fetches a record by id.
func (d *SObjectDataResource) Get(ctx context.Context, id string) (Record, error) {
	var record Record
	if err := d.GetInto(ctx, id, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetInto fetches a record by id and decodes it into a caller-supplied
// value.
func (d *SObjectDataResource) GetInto(ctx context.Context, id string, out any) error {
	req := Request{Method: "GET", Path: d.rowPath(id)}
	if err := d.client.DoJSON(ctx, req, out); err != nil {
		return fmt.Errorf("get %s %s: %w", d.meta.Name, id, err)
	}
	return nil
}

// saveResult is the response to record creation.
type saveResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []any  `json:"errors"`
}

// Create inserts a record and returns its new id.
func (d *SObjectDataResource) Create(ctx context.Context, fields Record) (string, error) {
	req := Request{Method: "POST", Path: d.meta.URLs.SObject + "/", Body: fields}
	var result saveResult
	if err := d.client.DoJSON(ctx, req, &result); err != nil {
		return "", fmt.Errorf("create %s: %w", d.meta.Name, err)
	}
	if !result.Success {
		return "", fmt.Errorf("salesforce: create %s reported failure: %v", d.meta.Name, result.Errors)
	}
	return result.ID, nil
}

// Update patches the given fields on a record.
func (d *SObjectDataResource) Update(ctx context.Context, id string, fields Record) error {
	req := Request{Method: "PATCH", Path: d.rowPath(id), Body: fields}
	if err := d.client.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("update %s %s: %w", d.meta.Name, id, err)
	}
	return nil
}

// Delete removes a record.
func (d *SObjectDataResource) Delete(ctx context.Context, id string) error {
	req := Request{Method: "DELETE", Path: d.rowPath(id)}
	if err := d.client.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", d.meta.Name, id, err)
	}
	return nil
}

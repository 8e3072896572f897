package protocol

// Resource describes a resource offered by the server.
type Resource struct {
	URI         string              `json:"uri"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	MimeType    string              `json:"mimeType,omitempty"`
	Annotations *ContentAnnotations `json:"annotations,omitempty"`
	Size        int64               `json:"size,omitempty"`
}

// ResourceContents holds the contents of a single resource. Exactly one of
// Text and Blob is set.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64
}

// ListResourcesParams defines the parameters for a 'resources/list' request.
type ListResourcesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourcesResult defines the result payload for a 'resources/list'
// response.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceParams defines the parameters for a 'resources/read' request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult defines the result payload for a 'resources/read'
// response.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ResourceUpdatedParams is the payload of a notifications/resources/updated
// notification.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

package model

// Metadata holds the descriptive attributes registered with the metadata
// service for one document. Field names follow the metadata service's API.
type Metadata struct {
	DocumentID   string `json:"document_id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	CreationDate string `json:"creation_date"`
	FileType     string `json:"file_type"`
}

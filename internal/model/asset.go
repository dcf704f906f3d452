package model

// Asset is a document or record that annotations are attached to.
// CSV rows are child assets pointing at their CSV parent.
type Asset struct {
	ID             int    `json:"id"`
	UUID           string `json:"uuid,omitempty"`
	Title          string `json:"title,omitempty"`
	Kind           string `json:"kind,omitempty"`
	EventTimestamp string `json:"event_timestamp,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	SourceID       *int   `json:"source_id,omitempty"`
	ParentAssetID  *int   `json:"parent_asset_id,omitempty"`
	PartIndex      *int   `json:"part_index,omitempty"`
}

// ModelInfo describes a language model offered by the upstream API.
type ModelInfo struct {
	Provider      string `json:"provider"`
	Name          string `json:"name"`
	SupportsTools bool   `json:"supports_tools"`
}

// FragmentCuration promotes a value from an annotation run onto an asset.
type FragmentCuration struct {
	AssetID       int         `json:"asset_id"`
	FragmentKey   string      `json:"fragment_key"`
	FragmentValue interface{} `json:"fragment_value"`
	SourceRunID   int         `json:"source_run_id"`
	CuratedBy     string      `json:"curated_by,omitempty"`
}

// Fragment is a curated fragment as persisted locally.
type Fragment struct {
	ID            string      `json:"id"`
	AssetID       int         `json:"asset_id"`
	FragmentKey   string      `json:"fragment_key"`
	FragmentValue interface{} `json:"fragment_value"`
	SourceRunID   int         `json:"source_run_id"`
	CuratedBy     string      `json:"curated_by,omitempty"`
	Forwarded     bool        `json:"forwarded"`
	CreatedAt     string      `json:"created_at"`
}

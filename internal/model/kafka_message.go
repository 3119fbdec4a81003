package model

// ReadmeMessage là bản ghi harvest hoàn chỉnh của một repo, immutable sau
// khi tạo. Đây là payload đi qua sink (CSV, Kafka) và consumer.
type ReadmeMessage struct {
	Owner         string `json:"repo_owner"`
	Name          string `json:"repo_name"`
	Stars         int    `json:"repo_stars"`
	Url           string `json:"repo_url"`
	Description   string `json:"description"`
	Collaborators int    `json:"collaborators"`
	Topics        string `json:"topics"`
	Readme        string `json:"readme"`
}

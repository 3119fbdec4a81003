// Gói githubapi cung cấp các đối tượng truyền dữ liệu cho dự án
// Chuyển đổi phản hồi api tìm kiếm github thành một cấu trúc

package githubapi

type Owner struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// SearchItem là bản ghi tóm tắt trả về từ search API.
// HtmlUrl là identity duy nhất dùng để dedup giữa các slice chồng lấn.
type SearchItem struct {
	Id              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Owner           Owner    `json:"owner"`
	HtmlUrl         string   `json:"html_url"`
	Description     string   `json:"description"`
	Topics          []string `json:"topics"`
	StargazersCount int      `json:"stargazers_count"`
}

// Mapping response
type RawResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []SearchItem `json:"items"`
}

// ReadmeResponse là phản hồi của readme API, content được encode base64
type ReadmeResponse struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

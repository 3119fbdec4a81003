// Gói filter chặn dữ liệu harvest theo khoảng sao/collaborator rồi quét
// readme và description tìm emoji chính trị. Emoji được nhận cả ở dạng
// unicode lẫn shortcode markdown (":watermelon:"); repo không chứa emoji
// nào trong bảng bị loại khỏi output.

package filter

import (
	"sort"
	"strings"
)

// PoliticalEmojis là bảng emoji cần quét, nhóm theo phong trào.
// Một emoji có thể thuộc nhiều nhóm (💙 Israel/Ukraine, 🖤 Palestine/BLM).
var PoliticalEmojis = []string{
	// Israel và Palestine
	"🇮🇱", "💙", "🤍", "✡️", "🎗", "🇵🇸", "❤️", "💚", "🖤", "🍉",

	// Ukraine
	"🇺🇦", "💛", "🌻", "🇷🇺",

	// Black Lives Matter
	"✊", "✊🏾", "✊🏿", "🤎",

	// Biến đổi khí hậu
	"♻️", "🌱", "🌍", "🌎", "🌏", "🔥",

	// Nữ quyền
	"♀️", "🚺", "💔", "😔", "🍚", "🐰",

	// LGBTQ+
	"🌈", "🏳️‍🌈", "🏳️‍⚧️",

	// Bầu cử Mỹ 2024
	"🇺🇸", "🗳️", "🦅", "🐘",
}

// Shortcode markdown tương ứng với từng emoji, match không phân biệt hoa thường
var emojiShortcodes = map[string][]string{
	"🇮🇱":  {":flag_il:", ":israel:"},
	"💙":    {":blue_heart:"},
	"🤍":    {":white_heart:"},
	"✡️":   {":star_of_david:"},
	"🎗":    {":reminder_ribbon:"},
	"🇵🇸":  {":flag_ps:", ":palestinian_territories:", ":palestine:"},
	"❤️":   {":heart:", ":red_heart:"},
	"💚":    {":green_heart:"},
	"🖤":    {":black_heart:"},
	"🍉":    {":watermelon:"},
	"🇺🇦":  {":flag_ua:", ":ukraine:"},
	"💛":    {":yellow_heart:"},
	"🌻":    {":sunflower:"},
	"🇷🇺":  {":flag_ru:", ":ru:", ":russia:"},
	"✊":    {":fist:", ":raised_fist:"},
	"✊🏾":  {":fist_tone4:", ":raised_fist_tone4:"},
	"✊🏿":  {":fist_tone5:", ":raised_fist_tone5:"},
	"🤎":    {":brown_heart:"},
	"♻️":   {":recycle:"},
	"🌱":    {":seedling:"},
	"🌍":    {":earth_africa:"},
	"🌎":    {":earth_americas:"},
	"🌏":    {":earth_asia:"},
	"🔥":    {":fire:"},
	"♀️":   {":female_sign:"},
	"🚺":    {":womens:"},
	"💔":    {":broken_heart:"},
	"😔":    {":pensive:"},
	"🍚":    {":rice:"},
	"🐰":    {":rabbit:"},
	"🌈":    {":rainbow:"},
	"🏳️‍🌈": {":rainbow_flag:", ":pride_flag:"},
	"🏳️‍⚧️":  {":transgender_flag:"},
	"🇺🇸":  {":flag_us:", ":us:", ":usa:"},
	"🗳️":   {":ballot_box_with_ballot:", ":ballot_box:"},
	"🦅":    {":eagle:"},
	"🐘":    {":elephant:"},
}

// FoundEmojis trả về các emoji trong bảng xuất hiện trong text, dạng
// unicode hoặc shortcode. Kết quả đã dedup và giữ thứ tự của bảng.
func FoundEmojis(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	found := make([]string, 0)
	seen := make(map[string]bool, 8)

	for _, emoji := range PoliticalEmojis {
		if seen[emoji] {
			continue
		}
		if strings.Contains(text, emoji) {
			seen[emoji] = true
			found = append(found, emoji)
			continue
		}
		for _, shortcode := range emojiShortcodes[emoji] {
			if strings.Contains(lower, shortcode) {
				seen[emoji] = true
				found = append(found, emoji)
				break
			}
		}
	}
	return found
}

// Bounds là khoảng sao/collaborator cho phép. Max bằng 0 là không giới
// hạn trên, cả hai cận đều đóng.
type Bounds struct {
	MinStars         int
	MaxStars         int
	MinCollaborators int
	MaxCollaborators int
}

func (b Bounds) Admit(stars, collaborators int) bool {
	if stars < b.MinStars {
		return false
	}
	if b.MaxStars > 0 && stars > b.MaxStars {
		return false
	}
	if collaborators < b.MinCollaborators {
		return false
	}
	if b.MaxCollaborators > 0 && collaborators > b.MaxCollaborators {
		return false
	}
	return true
}

// Filter gom tiêu chí giữ/loại cho một bản ghi harvest
type Filter struct {
	Bounds Bounds
}

func NewFilter(bounds Bounds) *Filter {
	return &Filter{Bounds: bounds}
}

// Evaluate quyết định giữ hay loại một bản ghi: phải nằm trong bounds và
// readme hoặc description phải chứa ít nhất một emoji trong bảng.
// Trả về hợp của emoji tìm thấy ở cả hai trường.
func (f *Filter) Evaluate(stars, collaborators int, description, readme string) ([]string, bool) {
	if !f.Bounds.Admit(stars, collaborators) {
		return nil, false
	}

	found := FoundEmojis(readme)
	seen := make(map[string]bool, len(found))
	for _, emoji := range found {
		seen[emoji] = true
	}
	for _, emoji := range FoundEmojis(description) {
		if !seen[emoji] {
			seen[emoji] = true
			found = append(found, emoji)
		}
	}

	return found, len(found) > 0
}

// Stats đếm kết quả của một lượt filter
type Stats struct {
	Scanned  int
	Kept     int
	PerEmoji map[string]int
}

func NewStats() *Stats {
	return &Stats{PerEmoji: make(map[string]int, len(PoliticalEmojis))}
}

func (s *Stats) Record(found []string, kept bool) {
	s.Scanned++
	if !kept {
		return
	}
	s.Kept++
	for _, emoji := range found {
		s.PerEmoji[emoji]++
	}
}

// TopEmojis trả về emoji theo số repo giảm dần để log báo cáo
func (s *Stats) TopEmojis() []string {
	emojis := make([]string, 0, len(s.PerEmoji))
	for emoji := range s.PerEmoji {
		emojis = append(emojis, emoji)
	}
	sort.Slice(emojis, func(i, j int) bool {
		if s.PerEmoji[emojis[i]] != s.PerEmoji[emojis[j]] {
			return s.PerEmoji[emojis[i]] > s.PerEmoji[emojis[j]]
		}
		return emojis[i] < emojis[j]
	})
	return emojis
}

package catalog

import "strings"

// Anime is a catalog entry as returned by the Jikan v4 API.
type Anime struct {
	MalID        int64    `json:"mal_id"`
	URL          string   `json:"url"`
	Images       Images   `json:"images"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english"`
	Type         string   `json:"type"`
	Episodes     *int     `json:"episodes"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score"`
	Synopsis     string   `json:"synopsis"`
	Season       string   `json:"season"`
	Year         int      `json:"year"`
	Genres       []Genre  `json:"genres"`
}

// Images holds artwork URLs per format.
type Images struct {
	JPG  ImageSet `json:"jpg"`
	WebP ImageSet `json:"webp"`
}

// ImageSet holds artwork URLs at three sizes.
type ImageSet struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

// Genre is a catalog genre tag.
type Genre struct {
	MalID int64  `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// ImageURL returns the standard-size cover, preferring JPEG.
func (a *Anime) ImageURL() string {
	if a.Images.JPG.ImageURL != "" {
		return a.Images.JPG.ImageURL
	}
	return a.Images.WebP.ImageURL
}

// PosterURL returns the largest available cover.
func (a *Anime) PosterURL() string {
	if a.Images.JPG.LargeImageURL != "" {
		return a.Images.JPG.LargeImageURL
	}
	return a.ImageURL()
}

// EpisodeCount returns the episode total and whether it is published.
func (a *Anime) EpisodeCount() (int, bool) {
	if a.Episodes == nil {
		return 0, false
	}
	return *a.Episodes, true
}

// GenreNames returns the genre names joined with ", ".
func (a *Anime) GenreNames() string {
	names := make([]string, len(a.Genres))
	for i, g := range a.Genres {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

// listResponse is the envelope for list endpoints.
type listResponse struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes a page of list results.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
}

// itemResponse is the envelope for single-entry endpoints.
type itemResponse struct {
	Data Anime `json:"data"`
}

// apiError is the body Jikan sends with non-2xx responses.
type apiError struct {
	Status  int    `json:"status"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

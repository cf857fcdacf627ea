package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviedb/proj/internal/domain/fields"
	"moviedb/proj/internal/domain/models"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

var (
	ErrUnexpectedStatus = errors.New("unexpected catalog response status")
	ErrDecode           = errors.New("malformed catalog response")
)

type Client struct {
	log        *slog.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type moviePageResponse struct {
	Page         int            `json:"page"`
	Results      []models.Movie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type movieDetailsResponse struct {
	models.Movie
	Runtime fields.MovieRuntime `json:"runtime"`
	Genres  []models.Genre      `json:"genres"`
	Videos  struct {
		Results []models.Video `json:"results"`
	} `json:"videos"`
}

func (c *Client) ListPopular(ctx context.Context, page int) (*models.MoviePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	var resp moviePageResponse
	if err := c.get(ctx, "/movie/popular", params, &resp); err != nil {
		return nil, err
	}
	return resp.toPage(), nil
}

func (c *Client) Search(ctx context.Context, query string, page int) (*models.MoviePage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	var resp moviePageResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	return resp.toPage(), nil
}

func (c *Client) GetDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "videos")
	var resp movieDetailsResponse
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id), params, &resp); err != nil {
		return nil, err
	}
	details := &models.MovieDetails{
		Movie:   resp.Movie,
		Runtime: resp.Runtime,
		Genres:  resp.Genres,
		Videos:  resp.Videos.Results,
	}
	if len(details.GenreIDs) == 0 && len(details.Genres) > 0 {
		details.GenreIDs = make([]int, 0, len(details.Genres))
		for _, g := range details.Genres {
			details.GenreIDs = append(details.GenreIDs, g.ID)
		}
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	const op = "tmdb.Client.get"
	log := c.log.With("op", op, "path", path)
	params.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	log.Debug("catalog request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		log.Warn("catalog responded with error status", "status", resp.StatusCode)
		return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDecode, err)
	}
	return nil
}

func (r moviePageResponse) toPage() *models.MoviePage {
	results := r.Results
	if results == nil {
		results = []models.Movie{}
	}
	return &models.MoviePage{
		Page:         r.Page,
		Results:      results,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
	}
}

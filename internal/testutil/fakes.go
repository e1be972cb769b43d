package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/user/cinelog/internal/model"
)

// FakeMetadata 可控的元数据客户端
type FakeMetadata struct {
	mu     sync.Mutex
	Movies map[string]*model.MovieMetadata
	Err    error
	Calls  int
}

func NewFakeMetadata() *FakeMetadata {
	return &FakeMetadata{Movies: map[string]*model.MovieMetadata{}}
}

// Add 注册一部电影
func (f *FakeMetadata) Add(tmdbID, title string, vote float64) *model.MovieMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := strconv.Atoi(tmdbID)
	m := &model.MovieMetadata{ID: id, Title: title, VoteAverage: vote, PosterPath: "/" + tmdbID + ".jpg"}
	f.Movies[tmdbID] = m
	return m
}

func (f *FakeMetadata) GetMovie(ctx context.Context, tmdbID string) (*model.MovieMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	m, ok := f.Movies[tmdbID]
	if !ok {
		return nil, errors.New("movie not found")
	}
	c := *m
	return &c, nil
}

func (f *FakeMetadata) SearchMovies(ctx context.Context, query string, page int) (*model.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	res := &model.SearchPage{Page: page, TotalPages: 1, Results: []model.SearchMovie{}}
	for _, m := range f.Movies {
		res.Results = append(res.Results, model.SearchMovie{ID: m.ID, Title: m.Title, PosterPath: m.PosterPath})
	}
	res.TotalResults = len(res.Results)
	return res, nil
}

func (f *FakeMetadata) GetCredits(ctx context.Context, tmdbID string) (*model.Credits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	id, _ := strconv.Atoi(tmdbID)
	return &model.Credits{ID: id}, nil
}

// Published 一条已发布的消息
type Published struct {
	Topic   string
	Payload json.RawMessage
}

// FakeNotifier 记录发布的消息，Err 非空时发布失败
type FakeNotifier struct {
	mu   sync.Mutex
	Sent []Published
	Err  error
}

func (f *FakeNotifier) Publish(topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.Sent = append(f.Sent, Published{Topic: topic, Payload: data})
	return nil
}

// Topics 已发布的主题
func (f *FakeNotifier) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Sent))
	for _, p := range f.Sent {
		out = append(out, p.Topic)
	}
	return out
}

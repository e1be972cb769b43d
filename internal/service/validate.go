package service

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	msgTMDBScore = "TMDB score must be between 0 and 10."
	msgIMDbScore = "IMDB score must be between 0 and 10."
	msgRTScore   = "Rotten Tomatoes score must be between 0 and 100."
	msgRating    = "Rating must be between 0 and 10."
	msgDate      = "Watched date is invalid."
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// scoreInput 观影记录可选评分，nil 表示未提供
type scoreInput struct {
	TMDB *float64 `validate:"omitnil,gte=0,lte=10"`
	IMDb *float64 `validate:"omitnil,gte=0,lte=10"`
	RT   *int     `validate:"omitnil,gte=0,lte=100"`
}

type ratingInput struct {
	Rating float64 `validate:"gte=0,lte=10"`
}

var fieldMessages = map[string]string{
	"TMDB":   msgTMDBScore,
	"IMDb":   msgIMDbScore,
	"RT":     msgRTScore,
	"Rating": msgRating,
}

// checkStruct 将第一个校验失败的字段转换为对应提示
func checkStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].Field()]; ok {
			return Validation(msg)
		}
	}
	return Validation("Invalid input.")
}

// parseFloatParam 未提供或为空返回 nil；无法解析时返回 msg 对应的校验错误
func parseFloatParam(p Params, key, msg string) (*float64, error) {
	raw, ok := p.Lookup(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, Validation(msg)
	}
	return &v, nil
}

// parseIntParam 同 parseFloatParam，允许 "85.0" 这种整数值
func parseIntParam(p Params, key, msg string) (*int, error) {
	raw, ok := p.Lookup(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, Validation(msg)
	}
	v := int(f)
	return &v, nil
}

// parseScores 解析并校验三个评分
func parseScores(p Params) (*scoreInput, error) {
	in := &scoreInput{}
	var err error
	if in.TMDB, err = parseFloatParam(p, "tmdb_score", msgTMDBScore); err != nil {
		return nil, err
	}
	if in.IMDb, err = parseFloatParam(p, "imdb_score", msgIMDbScore); err != nil {
		return nil, err
	}
	if in.RT, err = parseIntParam(p, "rt_score", msgRTScore); err != nil {
		return nil, err
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	return in, nil
}

// parseRating 未提供返回 nil
func parseRating(p Params) (*float64, error) {
	v, err := parseFloatParam(p, "rating", msgRating)
	if err != nil || v == nil {
		return nil, err
	}
	if err := checkStruct(ratingInput{Rating: *v}); err != nil {
		return nil, err
	}
	return v, nil
}

// parseWatchedDate 支持 2006-01-02 以及 RFC3339
func parseWatchedDate(p Params) (*time.Time, error) {
	raw := p.Get("watched_date")
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, Validation(msgDate)
}

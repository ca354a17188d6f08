package transform

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"regexp"
	"strconv"
	"strings"

	"github.com/BartekS5/rdbsync/pkg/models"
	"github.com/BartekS5/rdbsync/pkg/utils"
	"github.com/shopspring/decimal"
)

var builtins = map[string]Factory{
	"dx_substr":      newSubstr,
	"dx_pad":         newPad,
	"dx_replace":     newReplace,
	"dx_filter":      newFilter,
	"dx_digest":      newDigest,
	"dx_date_format": newDateFormat,
}

// Builtin evaluators bind their parameters when built, so the params passed
// to Evaluate are ignored.

func columnIndex(cfg models.TransformerConfig) (int, error) {
	if cfg.Parameter.ColumnIndex == nil {
		return 0, fmt.Errorf("%w: columnIndex is required", ErrInvalidParameter)
	}
	return *cfg.Parameter.ColumnIndex, nil
}

func paras(cfg models.TransformerConfig, n int) ([]string, error) {
	if len(cfg.Parameter.Paras) != n {
		return nil, fmt.Errorf("%w: want %d paras, got %d", ErrInvalidParameter, n, len(cfg.Parameter.Paras))
	}
	return cfg.Parameter.Paras, nil
}

func nonNegative(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalidParameter, name, s)
	}
	return n, nil
}

// withString replaces column idx with the result of fn applied to its text.
// Null columns pass through untouched.
func withString(rec *models.Record, idx int, fn func(string) (string, error)) (*models.Record, error) {
	col := rec.Column(idx)
	if col.IsNull() {
		return rec, nil
	}
	s, err := col.AsString()
	if err != nil {
		return nil, err
	}
	out, err := fn(s)
	if err != nil {
		return nil, err
	}
	next := rec.Clone()
	next.SetColumn(idx, models.NewStringColumn(out))
	return next, nil
}

type substr struct {
	idx, start, length int
}

func newSubstr(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 2)
	if err != nil {
		return nil, err
	}
	start, err := nonNegative("start", p[0])
	if err != nil {
		return nil, err
	}
	length, err := nonNegative("length", p[1])
	if err != nil {
		return nil, err
	}
	return &substr{idx: idx, start: start, length: length}, nil
}

func (t *substr) Evaluate(_ context.Context, rec *models.Record, _ *Env, _ []string) (*models.Record, error) {
	return withString(rec, t.idx, func(s string) (string, error) {
		r := []rune(s)
		if t.start > len(r) {
			return "", fmt.Errorf("dx_substr start(%d) out of range(%d)", t.start, len(r))
		}
		end := min(t.start+t.length, len(r))
		return string(r[t.start:end]), nil
	})
}

type pad struct {
	idx    int
	left   bool
	length int
	with   string
}

func newPad(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 3)
	if err != nil {
		return nil, err
	}
	var left bool
	switch p[0] {
	case "l":
		left = true
	case "r":
	default:
		return nil, fmt.Errorf("%w: pad side must be l or r, got %q", ErrInvalidParameter, p[0])
	}
	length, err := nonNegative("length", p[1])
	if err != nil {
		return nil, err
	}
	if p[2] == "" {
		return nil, fmt.Errorf("%w: pad string is empty", ErrInvalidParameter)
	}
	return &pad{idx: idx, left: left, length: length, with: p[2]}, nil
}

func (t *pad) Evaluate(_ context.Context, rec *models.Record, _ *Env, _ []string) (*models.Record, error) {
	col := rec.Column(t.idx)
	s := ""
	if !col.IsNull() {
		var err error
		if s, err = col.AsString(); err != nil {
			return nil, err
		}
	}
	r := []rune(s)
	var out string
	switch {
	case len(r) >= t.length:
		// both sides keep the leading characters
		out = string(r[:t.length])
	default:
		fill := []rune(strings.Repeat(t.with, (t.length-len(r))/len([]rune(t.with))+1))[:t.length-len(r)]
		if t.left {
			out = string(fill) + s
		} else {
			out = s + string(fill)
		}
	}
	next := rec.Clone()
	next.SetColumn(t.idx, models.NewStringColumn(out))
	return next, nil
}

type replace struct {
	idx, start, length int
	with               string
}

func newReplace(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 3)
	if err != nil {
		return nil, err
	}
	start, err := nonNegative("start", p[0])
	if err != nil {
		return nil, err
	}
	length, err := nonNegative("length", p[1])
	if err != nil {
		return nil, err
	}
	return &replace{idx: idx, start: start, length: length, with: p[2]}, nil
}

func (t *replace) Evaluate(_ context.Context, rec *models.Record, _ *Env, _ []string) (*models.Record, error) {
	return withString(rec, t.idx, func(s string) (string, error) {
		r := []rune(s)
		if t.start > len(r) {
			return "", fmt.Errorf("dx_replace start(%d) out of range(%d)", t.start, len(r))
		}
		end := min(t.start+t.length, len(r))
		return string(r[:t.start]) + t.with + string(r[end:]), nil
	})
}

// filter drops records whose column matches the condition.
type filter struct {
	idx   int
	op    string
	value string
	re    *regexp.Regexp
}

func newFilter(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 2)
	if err != nil {
		return nil, err
	}
	f := &filter{idx: idx, op: strings.ToLower(strings.TrimSpace(p[0])), value: p[1]}
	switch f.op {
	case "like", "not like":
		f.re, err = regexp.Compile("^(?:" + p[1] + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrInvalidParameter, p[1], err)
		}
	case "=", "!=", ">", "<", ">=", "<=":
	default:
		return nil, fmt.Errorf("%w: unknown filter operator %q", ErrInvalidParameter, p[0])
	}
	return f, nil
}

func (t *filter) Evaluate(_ context.Context, rec *models.Record, _ *Env, _ []string) (*models.Record, error) {
	match, err := t.matches(rec.Column(t.idx))
	if err != nil {
		return nil, err
	}
	if match {
		return nil, nil
	}
	return rec, nil
}

func (t *filter) matches(col models.Column) (bool, error) {
	if col.IsNull() {
		isNull := strings.EqualFold(t.value, "null")
		switch t.op {
		case "=", "like":
			return isNull, nil
		case "!=", "not like":
			return !isNull, nil
		}
		return false, nil
	}

	switch t.op {
	case "like", "not like":
		s, err := col.AsString()
		if err != nil {
			return false, err
		}
		return t.re.MatchString(s) == (t.op == "like"), nil
	}

	cmp, err := t.compare(col)
	if err != nil {
		return false, err
	}
	switch t.op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case "<":
		return cmp < 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return cmp <= 0, nil
	}
}

func (t *filter) compare(col models.Column) (int, error) {
	switch col.Type() {
	case models.TypeLong, models.TypeDouble:
		left, err := col.AsDecimal()
		if err != nil {
			return 0, err
		}
		right, err := decimal.NewFromString(strings.TrimSpace(t.value))
		if err != nil {
			return 0, fmt.Errorf("dx_filter value %q is not numeric", t.value)
		}
		return left.Cmp(right), nil
	case models.TypeDate:
		left, _ := col.AsDate()
		right, err := utils.ParseDateTime(t.value)
		if err != nil {
			return 0, fmt.Errorf("dx_filter value %q is not a date", t.value)
		}
		return left.Compare(right), nil
	case models.TypeBool:
		if t.op != "=" && t.op != "!=" {
			return 0, fmt.Errorf("dx_filter operator %s is not defined for BOOL", t.op)
		}
	}
	s, err := col.AsString()
	if err != nil {
		return 0, err
	}
	return strings.Compare(s, t.value), nil
}

type digest struct {
	idx   int
	newH  func() hash.Hash
	upper bool
}

func newDigest(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 2)
	if err != nil {
		return nil, err
	}
	d := &digest{idx: idx}
	switch strings.ToLower(p[0]) {
	case "md5":
		d.newH = md5.New
	case "sha1":
		d.newH = sha1.New
	default:
		return nil, fmt.Errorf("%w: digest must be md5 or sha1, got %q", ErrInvalidParameter, p[0])
	}
	switch p[1] {
	case "toUpperCase":
		d.upper = true
	case "toLowerCase":
	default:
		return nil, fmt.Errorf("%w: digest case must be toUpperCase or toLowerCase, got %q", ErrInvalidParameter, p[1])
	}
	return d, nil
}

func (t *digest) Evaluate(_ context.Context, rec *models.Record, _ *Env, _ []string) (*models.Record, error) {
	col := rec.Column(t.idx)
	s, err := col.AsString()
	if err != nil {
		return nil, err
	}
	h := t.newH()
	h.Write([]byte(s))
	out := hex.EncodeToString(h.Sum(nil))
	if t.upper {
		out = strings.ToUpper(out)
	}
	next := rec.Clone()
	next.SetColumn(t.idx, models.NewStringColumn(out))
	return next, nil
}

// dateFormat renders a date column as text in the active scope's zone.
type dateFormat struct {
	idx    int
	layout string
}

func newDateFormat(cfg models.TransformerConfig) (Evaluator, error) {
	idx, err := columnIndex(cfg)
	if err != nil {
		return nil, err
	}
	p, err := paras(cfg, 1)
	if err != nil {
		return nil, err
	}
	if p[0] == "" {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidParameter)
	}
	return &dateFormat{idx: idx, layout: p[0]}, nil
}

func (t *dateFormat) Evaluate(_ context.Context, rec *models.Record, env *Env, _ []string) (*models.Record, error) {
	col := rec.Column(t.idx)
	if col.IsNull() {
		return rec, nil
	}
	ts, err := col.AsDate()
	if err != nil {
		return nil, err
	}
	next := rec.Clone()
	next.SetColumn(t.idx, models.NewStringColumn(ts.In(env.Scope().Location).Format(t.layout)))
	return next, nil
}

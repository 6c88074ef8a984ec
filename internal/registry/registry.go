package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"shorturl-registry/internal/model"
	"shorturl-registry/internal/shortcode"
	"shorturl-registry/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultValidity    = 30 * time.Minute
	DefaultMaxAttempts = 10
	DefaultMaxBatch    = 5
	ExpiryLayout       = "2006-01-02 15:04:05"
)

// CreateRequest 一条待缩短的 URL。ValidityMinutes 为 0 表示使用默认有效期，
// Shortcode 为空表示自动生成
type CreateRequest struct {
	OriginalURL     string
	ValidityMinutes float64
	Shortcode       string
}

// ShortenedURL 创建成功后返回给调用方的信息
type ShortenedURL struct {
	OriginalURL string    `json:"originalUrl"`
	ShortURL    string    `json:"shortUrl"`
	Shortcode   string    `json:"shortcode"`
	ExpiryDate  time.Time `json:"expiryDate"`
	Expiry      string    `json:"expiry"`
}

// Status 短码解析结果
type Status int

const (
	NotFound Status = iota
	Expired
	Active
)

func (s Status) String() string {
	switch s {
	case Expired:
		return "expired"
	case Active:
		return "active"
	default:
		return "not_found"
	}
}

type Resolution struct {
	Status Status
	Record model.URLRecord
}

// Registry 负责短码分配、记录持久化、带过期检查的解析以及点击记录
type Registry struct {
	store           store.Store
	generate        func() (string, error)
	now             func() time.Time
	baseURL         string
	defaultValidity time.Duration
	maxAttempts     int
	maxBatch        int
	logger          *zap.SugaredLogger
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithGenerator(generate func() (string, error)) Option {
	return func(r *Registry) { r.generate = generate }
}

func WithBaseURL(baseURL string) Option {
	return func(r *Registry) { r.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithDefaultValidity(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.defaultValidity = d
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithMaxBatchSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxBatch = n
		}
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *Registry) { r.logger = logger.Named("registry") }
}

func New(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:           s,
		generate:        shortcode.Generate,
		now:             time.Now,
		defaultValidity: DefaultValidity,
		maxAttempts:     DefaultMaxAttempts,
		maxBatch:        DefaultMaxBatch,
		logger:          zap.S().Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateShortURL 创建单条短链接
func (r *Registry) CreateShortURL(ctx context.Context, req CreateRequest) (ShortenedURL, error) {
	results, err := r.CreateBatch(ctx, []CreateRequest{req})
	if err != nil {
		return ShortenedURL{}, err
	}
	return results[0], nil
}

// CreateBatch 批量创建。所有条目先全部校验（包括批内短码重复），
// 任何一条不合法则整批拒绝，不写入任何数据。
// 写入阶段失败时返回已经保存成功的结果和错误。
func (r *Registry) CreateBatch(ctx context.Context, reqs []CreateRequest) ([]ShortenedURL, error) {
	if len(reqs) == 0 {
		return nil, &BatchError{Err: ErrEmptyBatch}
	}
	if len(reqs) > r.maxBatch {
		return nil, &BatchError{Err: fmt.Errorf("%w (最多 %d 条)", ErrBatchTooLarge, r.maxBatch)}
	}

	normalized := make([]CreateRequest, len(reqs))
	entryErrs := make([]error, len(reqs))
	failed := false
	for i, req := range reqs {
		normalized[i] = CreateRequest{
			OriginalURL:     strings.TrimSpace(req.OriginalURL),
			ValidityMinutes: req.ValidityMinutes,
			Shortcode:       strings.TrimSpace(req.Shortcode),
		}
		if err := r.validate(ctx, normalized[i]); err != nil {
			entryErrs[i] = err
			failed = true
		}
	}
	if failed {
		return nil, &BatchError{Entries: entryErrs}
	}

	if dupErrs, ok := siblingDuplicates(normalized); ok {
		return nil, &BatchError{Entries: dupErrs, Err: ErrDuplicateInBatch}
	}

	results := make([]ShortenedURL, 0, len(normalized))
	for i, req := range normalized {
		info, err := r.persist(ctx, req)
		if err != nil {
			r.logger.Errorf("第 %d 条短链接保存失败: %v", i+1, err)
			return results, fmt.Errorf("第 %d 条: %w", i+1, err)
		}
		results = append(results, info)
	}
	return results, nil
}

// Resolve 查找短码并判断是否过期，不修改任何数据
func (r *Registry) Resolve(ctx context.Context, code string) Resolution {
	rec, ok := r.store.FindByShortcode(ctx, code)
	if !ok {
		return Resolution{Status: NotFound}
	}
	if rec.IsExpired(r.now()) {
		return Resolution{Status: Expired, Record: rec}
	}
	return Resolution{Status: Active, Record: rec}
}

// RecordVisit 记录一次访问，只应在 Resolve 返回 Active 之后调用
func (r *Registry) RecordVisit(ctx context.Context, code string, event model.ClickEvent) bool {
	return r.store.RecordClick(ctx, code, event)
}

// ListAll 返回全部记录，排序和过滤由调用方负责
func (r *Registry) ListAll(ctx context.Context) []model.URLRecord {
	return r.store.LoadAll(ctx)
}

// Now 返回注册表使用的当前时间
func (r *Registry) Now() time.Time {
	return r.now()
}

// ShortURL 拼接完整的短链接地址
func (r *Registry) ShortURL(code string) string {
	return r.baseURL + "/" + code
}

func (r *Registry) validate(ctx context.Context, req CreateRequest) error {
	if req.OriginalURL == "" {
		return ErrURLRequired
	}
	if !shortcode.IsValidURL(req.OriginalURL) {
		return ErrInvalidURL
	}
	if !validValidity(req.ValidityMinutes) {
		return ErrInvalidValidity
	}
	if !shortcode.IsValidShortcode(req.Shortcode) {
		return ErrInvalidShortcode
	}
	if req.Shortcode != "" {
		if _, exists := r.store.FindByShortcode(ctx, req.Shortcode); exists {
			return ErrShortcodeTaken
		}
	}
	return nil
}

func validValidity(minutes float64) bool {
	if minutes == 0 {
		return true
	}
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return false
	}
	d := minutes * float64(time.Minute)
	return d >= 1 && d < math.MaxInt64
}

func (r *Registry) validity(minutes float64) time.Duration {
	if minutes == 0 {
		return r.defaultValidity
	}
	return time.Duration(minutes * float64(time.Minute))
}

// siblingDuplicates 标记批内重复的非空短码，重复的每一条都会报错
func siblingDuplicates(reqs []CreateRequest) ([]error, bool) {
	counts := make(map[string]int, len(reqs))
	for _, req := range reqs {
		if req.Shortcode != "" {
			counts[req.Shortcode]++
		}
	}

	errs := make([]error, len(reqs))
	found := false
	for i, req := range reqs {
		if req.Shortcode != "" && counts[req.Shortcode] > 1 {
			errs[i] = ErrDuplicateInBatch
			found = true
		}
	}
	return errs, found
}

func (r *Registry) persist(ctx context.Context, req CreateRequest) (ShortenedURL, error) {
	validity := r.validity(req.ValidityMinutes)

	if req.Shortcode != "" {
		rec := model.NewURLRecord(req.OriginalURL, req.Shortcode, r.now(), validity)
		if err := r.append(ctx, rec); err != nil {
			return ShortenedURL{}, err
		}
		return r.info(rec), nil
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		code, err := r.generate()
		if err != nil {
			return ShortenedURL{}, fmt.Errorf("生成短码失败: %w", err)
		}

		rec := model.NewURLRecord(req.OriginalURL, code, r.now(), validity)
		err = r.append(ctx, rec)
		if err == nil {
			return r.info(rec), nil
		}
		if !errors.Is(err, ErrShortcodeTaken) {
			return ShortenedURL{}, err
		}
		r.logger.Debugf("生成的短码 %s 已存在，第 %d 次重试", code, attempt)
	}
	return ShortenedURL{}, ErrGenerateExhausted
}

// append 写入失败时区分短码冲突和存储故障
func (r *Registry) append(ctx context.Context, rec model.URLRecord) error {
	if r.store.AppendRecord(ctx, rec) {
		r.logger.Infof("短链接已创建: %s -> %s", rec.Shortcode, rec.OriginalURL)
		return nil
	}
	if _, exists := r.store.FindByShortcode(ctx, rec.Shortcode); exists {
		return ErrShortcodeTaken
	}
	return ErrStorage
}

func (r *Registry) info(rec model.URLRecord) ShortenedURL {
	return ShortenedURL{
		OriginalURL: rec.OriginalURL,
		ShortURL:    r.ShortURL(rec.Shortcode),
		Shortcode:   rec.Shortcode,
		ExpiryDate:  rec.ExpiryDate,
		Expiry:      rec.ExpiryDate.Local().Format(ExpiryLayout),
	}
}

package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"shorturl-registry/internal/model"
	"shorturl-registry/internal/registry"
	"shorturl-registry/internal/shortcode"
	"shorturl-registry/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ShortLinkHandler 处理器，只调用注册表的创建、解析、记录访问和列表操作
type ShortLinkHandler struct {
	registry  *registry.Registry
	poller    *stats.Poller
	countdown int
	logger    *zap.SugaredLogger
}

// NewShortLinkHandler 创建处理器实例，countdown 为跳转前等待的秒数
func NewShortLinkHandler(reg *registry.Registry, poller *stats.Poller, countdown int, logger *zap.SugaredLogger) *ShortLinkHandler {
	return &ShortLinkHandler{
		registry:  reg,
		poller:    poller,
		countdown: countdown,
		logger:    logger.Named("handler"),
	}
}

// RegisterValidators 向 gin 的校验器注册 shortcode、weburl 标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}
	return shortcode.RegisterBindings(v)
}

// Templates 跳转页和错误页模板
func Templates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortLinkRequest 单条创建请求
type CreateShortLinkRequest struct {
	URL       string  `json:"url" binding:"required,weburl" example:"https://github.com/gin-gonic/gin"`
	Validity  float64 `json:"validity" binding:"gte=0" example:"30"`
	Shortcode string  `json:"shortcode" binding:"shortcode" example:"gin123"`
}

// BatchEntry 批量创建中的一条
type BatchEntry struct {
	URL       string  `json:"url" example:"https://github.com/gin-gonic/gin"`
	Validity  float64 `json:"validity" example:"30"`
	Shortcode string  `json:"shortcode" example:"gin123"`
}

// BatchRequest 批量创建请求
type BatchRequest struct {
	Entries []BatchEntry `json:"entries" binding:"required"`
}

// BatchResponse 批量创建成功的响应
type BatchResponse struct {
	Results []registry.ShortenedURL `json:"results"`
}

// BatchErrorResponse 批量校验失败的响应，entries 与请求一一对应，合法的条目为空字符串
type BatchErrorResponse struct {
	Error   string                  `json:"error"`
	Entries []string                `json:"entries,omitempty"`
	Results []registry.ShortenedURL `json:"results,omitempty"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，可指定有效期（分钟）和自定义短码
// @Tags ShortLink
// @Accept  json
// @Produce  json
// @Param   url  body   CreateShortLinkRequest  true  "长链接 URL"
// @Success 201 {object} registry.ShortenedURL "成功响应"
// @Failure 400 {object} BatchErrorResponse "请求无效"
// @Failure 409 {object} BatchErrorResponse "短码已被占用"
// @Failure 500 {object} BatchErrorResponse "保存失败"
// @Router /api/shorten [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BatchErrorResponse{Error: "无效的请求数据: " + err.Error()})
		return
	}

	info, err := h.registry.CreateShortURL(c.Request.Context(), registry.CreateRequest{
		OriginalURL:     req.URL,
		ValidityMinutes: req.Validity,
		Shortcode:       req.Shortcode,
	})
	if err != nil {
		c.JSON(statusFor(err), BatchErrorResponse{Error: err.Error()})
		return
	}

	h.poller.Refresh()
	c.JSON(http.StatusCreated, info)
}

// CreateBatch godoc
// @Summary 批量创建短链接
// @Description 一次最多提交 5 条，任何一条不合法或短码重复时整批拒绝
// @Tags ShortLink
// @Accept  json
// @Produce  json
// @Param   entries  body   BatchRequest  true  "待缩短的 URL 列表"
// @Success 201 {object} BatchResponse "成功响应"
// @Failure 400 {object} BatchErrorResponse "校验失败"
// @Failure 500 {object} BatchErrorResponse "保存失败"
// @Router /api/shorten/batch [post]
func (h *ShortLinkHandler) CreateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BatchErrorResponse{Error: "无效的请求数据: " + err.Error()})
		return
	}

	reqs := make([]registry.CreateRequest, len(req.Entries))
	for i, e := range req.Entries {
		reqs[i] = registry.CreateRequest{OriginalURL: e.URL, ValidityMinutes: e.Validity, Shortcode: e.Shortcode}
	}

	results, err := h.registry.CreateBatch(c.Request.Context(), reqs)
	if err != nil {
		var batchErr *registry.BatchError
		if errors.As(err, &batchErr) {
			c.JSON(http.StatusBadRequest, batchErrorResponse(batchErr))
			return
		}
		h.poller.Refresh()
		c.JSON(http.StatusInternalServerError, BatchErrorResponse{Error: err.Error(), Results: results})
		return
	}

	h.poller.Refresh()
	c.JSON(http.StatusCreated, BatchResponse{Results: results})
}

// RedirectToOriginal 解析短码，有效时记录一次访问后跳转
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	code := c.Param("code")
	ctx := c.Request.Context()

	res := h.registry.Resolve(ctx, code)
	switch res.Status {
	case registry.NotFound:
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"Title":   "链接不存在",
			"Message": "该短链接不存在，请检查地址是否正确。",
		})
		return
	case registry.Expired:
		c.HTML(http.StatusGone, "error.html", gin.H{
			"Title":   "链接已过期",
			"Message": "该短链接已过期，不再可用。",
		})
		return
	}

	event := model.NewClickEvent(h.registry.Now(), c.Request.Referer(), c.Request.UserAgent())
	if !h.registry.RecordVisit(ctx, code, event) {
		h.logger.Warnf("记录短码 %s 的访问失败", code)
	}

	if h.countdown <= 0 {
		c.Redirect(http.StatusFound, res.Record.OriginalURL)
		return
	}
	c.HTML(http.StatusOK, "redirect.html", gin.H{
		"URL":     res.Record.OriginalURL,
		"Seconds": h.countdown,
	})
}

// GetAllLinks godoc
// @Summary 获取全部短链接
// @Description 按创建时间倒序返回所有记录（包括已过期的）
// @Tags Stats
// @Produce  json
// @Success 200 {array} model.URLRecord "成功响应"
// @Router /api/links [get]
func (h *ShortLinkHandler) GetAllLinks(c *gin.Context) {
	c.JSON(http.StatusOK, h.poller.Snapshot().Records)
}

// GetStats godoc
// @Summary 获取统计数据
// @Description 总数、有效数、过期数和总点击数，按固定周期刷新
// @Tags Stats
// @Produce  json
// @Success 200 {object} stats.Summary "成功响应"
// @Router /api/stats [get]
func (h *ShortLinkHandler) GetStats(c *gin.Context) {
	snap := h.poller.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total":       snap.Summary.Total,
		"active":      snap.Summary.Active,
		"expired":     snap.Summary.Expired,
		"totalClicks": snap.Summary.TotalClicks,
		"refreshedAt": snap.RefreshedAt,
	})
}

// GetQRCode godoc
// @Summary 短链接二维码
// @Description 生成短链接的 PNG 二维码，size 取值 128-1024
// @Tags ShortLink
// @Produce  png
// @Param   code  path   string  true  "短码"
// @Param   size  query  int     false "图片边长"
// @Success 200 {file} binary "二维码图片"
// @Failure 400 {object} BatchErrorResponse "参数错误"
// @Failure 404 {object} BatchErrorResponse "短码不存在"
// @Router /api/links/{code}/qr [get]
func (h *ShortLinkHandler) GetQRCode(c *gin.Context) {
	code := c.Param("code")

	size := 256
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 128 || n > 1024 {
			c.JSON(http.StatusBadRequest, BatchErrorResponse{Error: "size 必须是 128 到 1024 之间的整数"})
			return
		}
		size = n
	}

	if res := h.registry.Resolve(c.Request.Context(), code); res.Status == registry.NotFound {
		c.JSON(http.StatusNotFound, BatchErrorResponse{Error: "链接不存在"})
		return
	}

	png, err := qrcode.Encode(h.registry.ShortURL(code), qrcode.Medium, size)
	if err != nil {
		h.logger.Errorf("生成二维码失败: %v", err)
		c.JSON(http.StatusInternalServerError, BatchErrorResponse{Error: "生成二维码失败"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrShortcodeTaken):
		return http.StatusConflict
	case errors.Is(err, registry.ErrStorage), errors.Is(err, registry.ErrGenerateExhausted):
		return http.StatusInternalServerError
	default:
		var batchErr *registry.BatchError
		if errors.As(err, &batchErr) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

func batchErrorResponse(e *registry.BatchError) BatchErrorResponse {
	resp := BatchErrorResponse{Error: e.Error()}
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	if len(e.Entries) > 0 {
		resp.Entries = make([]string, len(e.Entries))
		for i, err := range e.Entries {
			if err != nil {
				resp.Entries[i] = err.Error()
			}
		}
	}
	return resp
}

// Package api is the HTTP shell around the extraction pipeline: upload a
// statement PDF, get its transactions back as JSON, CSV or XLSX.
package api

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/pipeline"
	"github.com/insightdelivered/statement-extractor/internal/writer"
)

// DefaultMaxUploadMB caps the request body.
const DefaultMaxUploadMB = 16

// NoTransactionsMessage is returned when a readable document yields nothing.
const NoTransactionsMessage = "no transactions found"

// Document is an opened upload.
type Document interface {
	models.Source
	Close() error
}

// Opener opens an uploaded file saved at path.
type Opener func(path string) (Document, error)

// Extractor runs the pipeline over a document.
type Extractor interface {
	ExtractTransactions(ctx context.Context, src models.Source, opts ...pipeline.Option) (*pipeline.Result, error)
}

// TemplateLibrary is the read side of the template store.
type TemplateLibrary interface {
	Templates() []models.StatementTemplate
	Get(name string) (models.StatementTemplate, bool)
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Extractor   Extractor
	Open        Opener
	Templates   TemplateLibrary
	Gatherer    prometheus.Gatherer // nil hides /metrics
	Log         logrus.FieldLogger
	MaxUploadMB int
	Version     string
}

// Response is the JSON body of every API reply.
type Response struct {
	Success          bool                  `json:"success"`
	Error            string                `json:"error,omitempty"`
	Message          string                `json:"message,omitempty"`
	RequestID        string                `json:"requestId,omitempty"`
	Kind             models.PageKind       `json:"kind,omitempty"`
	Template         string                `json:"template,omitempty"`
	TemplateScore    float64               `json:"templateScore,omitempty"`
	Account          *models.AccountInfo   `json:"account,omitempty"`
	Transactions     []writer.Record       `json:"transactions"`
	Count            int                   `json:"count"`
	TotalWithdrawals string                `json:"totalWithdrawals,omitempty"`
	TotalDeposits    string                `json:"totalDeposits,omitempty"`
	Pages            []pipeline.PageReport `json:"pages,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	TimedOut         bool                  `json:"timedOut,omitempty"`
}

// TemplateSummary is one entry of GET /api/templates.
type TemplateSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Patterns    int    `json:"patterns"`
}

// NewApp builds the fiber application with every route registered.
func (h *Handler) NewApp() *fiber.App {
	if h.Log == nil {
		h.Log = logrus.StandardLogger()
	}
	if h.MaxUploadMB <= 0 {
		h.MaxUploadMB = DefaultMaxUploadMB
	}
	app := fiber.New(fiber.Config{
		AppName:               "statement-extractor",
		BodyLimit:             h.MaxUploadMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(requestID())
	app.Use(accessLog(h.Log))
	app.Use(recover.New())
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.handleHealth)
	api.Get("/templates", h.handleTemplates)
	api.Post("/preview", h.handlePreview)
	api.Post("/download", h.handleDownload)

	if h.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

func (h *Handler) handleTemplates(c *fiber.Ctx) error {
	out := []TemplateSummary{}
	if h.Templates != nil {
		for _, t := range h.Templates.Templates() {
			n := 0
			for _, ps := range t.Patterns {
				n += len(ps)
			}
			out = append(out, TemplateSummary{Name: t.Name, Description: t.Description, Patterns: n})
		}
	}
	return c.JSON(out)
}

func (h *Handler) handlePreview(c *fiber.Ctx) error {
	res, err := h.extract(c)
	if err != nil {
		return err
	}
	return c.JSON(h.response(c, res))
}

func (h *Handler) handleDownload(c *fiber.Ctx) error {
	format, err := writer.ParseFormat(formValue(c, "format", string(writer.FormatCSV)))
	if err != nil || format == writer.FormatJSON {
		return fiber.NewError(fiber.StatusBadRequest, "format must be csv or xlsx")
	}
	res, err := h.extract(c)
	if err != nil {
		return err
	}
	if res.Empty() {
		return c.JSON(h.response(c, res))
	}

	w, err := writer.New(format)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if cw, ok := w.(*writer.CSVWriter); ok {
		cw.IncludeHeader = c.FormValue("header") != "false"
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, h.meta(c, res), res.Transactions); err != nil {
		return err
	}

	name := strings.TrimSuffix(uploadName(c), filepath.Ext(uploadName(c))) + w.Extension()
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, w.ContentType())
	return c.Send(buf.Bytes())
}

// extract saves the upload to a scoped temp file and runs the pipeline.
func (h *Handler) extract(c *fiber.Ctx) (*pipeline.Result, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	var opts []pipeline.Option
	if name := c.FormValue("template"); name != "" {
		if h.Templates == nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "no template library configured")
		}
		t, ok := h.Templates.Get(name)
		if !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "unknown template: "+name)
		}
		opts = append(opts, pipeline.WithTemplate(t))
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := c.SaveFile(fh, path); err != nil {
		return nil, err
	}
	doc, err := h.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return h.Extractor.ExtractTransactions(c.UserContext(), doc, opts...)
}

func (h *Handler) response(c *fiber.Ctx, res *pipeline.Result) Response {
	resp := Response{
		Success:       true,
		RequestID:     requestIDFrom(c),
		Kind:          res.Kind,
		Template:      res.Template,
		TemplateScore: res.TemplateScore,
		Transactions:  writer.Records(res.Transactions),
		Count:         len(res.Transactions),
		Pages:         res.Pages,
		Warnings:      res.Warnings,
		TimedOut:      res.TimedOut,
	}
	if !res.Account.IsZero() {
		account := res.Account
		resp.Account = &account
	}
	if res.Empty() {
		resp.Message = NoTransactionsMessage
		return resp
	}

	var out, in decimal.Decimal
	for _, t := range res.Transactions {
		if t.Withdrawal.Valid {
			out = out.Add(t.Withdrawal.Decimal)
		}
		if t.Deposit.Valid {
			in = in.Add(t.Deposit.Decimal)
		}
	}
	resp.TotalWithdrawals = models.CanonicalAmount(out)
	resp.TotalDeposits = models.CanonicalAmount(in)
	return resp
}

func (h *Handler) meta(c *fiber.Ctx, res *pipeline.Result) writer.Meta {
	return writer.Meta{
		Source:   uploadName(c),
		Template: res.Template,
		Kind:     string(res.Kind),
		Account:  res.Account,
	}
}

// handleError maps errors to JSON replies: unreadable documents are 422,
// fiber errors keep their status, anything else is a 500.
func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"
	if fe, ok := err.(*fiber.Error); ok {
		status, msg = fe.Code, fe.Message
	} else if e, ok := errs.As(err); ok {
		msg = e.Message
		if e.Kind == errs.KindFile || e.Kind == errs.KindFormat {
			status = fiber.StatusUnprocessableEntity
		}
	}
	log := h.Log.WithFields(logrus.Fields{"requestId": requestIDFrom(c), "status": status})
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	} else {
		log.WithError(err).Info("request rejected")
	}
	return c.Status(status).JSON(Response{
		Success:      false,
		Error:        msg,
		RequestID:    requestIDFrom(c),
		Transactions: []writer.Record{},
	})
}

func uploadName(c *fiber.Ctx) string {
	if fh, err := c.FormFile("file"); err == nil {
		return filepath.Base(fh.Filename)
	}
	return "statement.pdf"
}

func formValue(c *fiber.Ctx, key, def string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

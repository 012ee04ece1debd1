package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"carprice/pipeline"
	"carprice/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const footer = "Aplikasi Prediksi Harga Mobil Sederhana © 2025. Dibuat dengan Go. Oleh mhmdfarouqq"

type pageData struct {
	ModelMessage string
	Dataset      datasetView
	Inputs       []inputView
	Result       string
	Error        string
	Hint         string
	Footer       string
}

type datasetView struct {
	// Warning is set when the file is missing; Error for any other load failure.
	Warning      string
	Error        string
	Header       []string
	Rows         [][]string
	ShapeMessage string
	CleanMessage string
	Charts       []chartView
	// Empty replaces the chart section when there is nothing to chart.
	Empty string
}

type chartView struct {
	Title       string
	URL         string
	Placeholder string
}

type inputView struct {
	Name  string
	Label string
	Help  string
	Min   string
	Max   string
	Step  string
	Value string
}

// RegisterPageHandlers adds the HTML page, the form post and the chart images.
func RegisterPageHandlers(mux *http.ServeMux, a *App) {
	mux.HandleFunc("GET /{$}", a.handlePage)
	mux.HandleFunc("POST /predict", a.handlePagePredict)
	mux.HandleFunc("GET /charts/{file}", a.handleChart)
}

func (a *App) handlePage(w http.ResponseWriter, r *http.Request) {
	data := a.basePage()
	data.Inputs = inputViews(nil)
	a.renderPage(w, data)
}

func (a *App) handlePagePredict(w http.ResponseWriter, r *http.Request) {
	data := a.basePage()
	if err := r.ParseForm(); err != nil {
		data.Inputs = inputViews(nil)
		data.Error, data.Hint = pricing.ErrorMessage(err), pricing.ErrorHint
		a.renderPage(w, data)
		return
	}
	data.Inputs = inputViews(r.PostForm)

	features, err := pricing.ParseFeatures(func(name string) (string, bool) {
		v, ok := r.PostForm[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	})
	if err == nil {
		err = pricing.Validate(features)
	}
	if err != nil {
		a.countPrediction("invalid")
		data.Error, data.Hint = pricing.ErrorMessage(err), pricing.ErrorHint
		a.renderPage(w, data)
		return
	}

	res, err := a.Service.Predict(r.Context(), features)
	if err != nil {
		a.countPrediction("error")
		data.Error, data.Hint = pricing.ErrorMessage(err), pricing.ErrorHint
		a.renderPage(w, data)
		return
	}
	a.countPrediction("ok")
	data.Result = res.Message()
	a.renderPage(w, data)
}

func (a *App) handleChart(w http.ResponseWriter, r *http.Request) {
	column, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok || !isTargetColumn(column) {
		http.NotFound(w, r)
		return
	}

	snap := a.Datasets.Current()
	ds := snap.Dataset
	if ds.Empty() {
		http.Error(w, pipeline.EmptyMessage(snap.Path), http.StatusNotFound)
		return
	}
	xs, ys, found := ds.Series(column)
	if !found {
		http.Error(w, ds.MissingColumnMessage(column), http.StatusNotFound)
		return
	}
	if len(xs) == 0 {
		http.Error(w, pipeline.EmptyMessage(snap.Path), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := renderLineChart(&buf, pipeline.ChartTitle(column), xs, ys); err != nil {
		a.Logger.Error("chart render failed", zap.String("column", column), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (a *App) basePage() pageData {
	return pageData{
		ModelMessage: a.ModelMessage,
		Dataset:      a.datasetView(),
		Footer:       footer,
	}
}

func (a *App) datasetView() datasetView {
	snap := a.Datasets.Current()
	var v datasetView
	if snap.Err != nil {
		msg := pipeline.LoadMessage(snap.Path, snap.Err)
		if errors.Is(snap.Err, pipeline.ErrDatasetNotFound) {
			v.Warning = msg
		} else {
			v.Error = msg
		}
		v.Empty = pipeline.EmptyMessage(snap.Path)
		return v
	}

	ds := snap.Dataset
	v.Header = ds.Header
	v.Rows = ds.Head(a.PreviewRows)
	v.ShapeMessage = ds.ShapeMessage()
	v.CleanMessage = ds.CleanMessage()
	if ds.Empty() {
		v.Empty = pipeline.EmptyMessage(snap.Path)
		return v
	}
	for _, column := range pipeline.TargetColumns {
		c := chartView{Title: pipeline.ChartTitle(column)}
		if ds.HasColumn(column) {
			c.URL = "/charts/" + column + ".svg"
		} else {
			c.Placeholder = ds.MissingColumnMessage(column)
		}
		v.Charts = append(v.Charts, c)
	}
	return v
}

func (a *App) renderPage(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		a.Logger.Error("page render failed", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (a *App) countPrediction(status string) {
	a.Metrics.IncrCounter("predictions_total", 1, map[string]string{"status": status})
}

// inputViews fills the form from submitted values, falling back to the defaults.
func inputViews(form map[string][]string) []inputView {
	views := make([]inputView, len(pricing.Bounds))
	for i, b := range pricing.Bounds {
		value := pricing.FormatInput(b.Default)
		if v, ok := form[b.Name]; ok && len(v) > 0 {
			value = v[0]
		}
		views[i] = inputView{
			Name:  b.Name,
			Label: b.Label,
			Help:  b.Help,
			Min:   pricing.FormatInput(b.Min),
			Max:   pricing.FormatInput(b.Max),
			Step:  "any",
			Value: value,
		}
	}
	return views
}

func isTargetColumn(column string) bool {
	for _, c := range pipeline.TargetColumns {
		if c == column {
			return true
		}
	}
	return false
}

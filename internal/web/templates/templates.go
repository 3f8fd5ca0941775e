// Package templates renders the portal's views as templ components.
//
// The components write HTML directly through the templ runtime; every
// dynamic value goes through templ.EscapeString before it reaches the page.
// Handlers compose them as templates.Page(...).Render(ctx, w).
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/smartalloc/portal/internal/analytics"
	"github.com/smartalloc/portal/internal/model"
)

// esc shortens templ.EscapeString for the writers below.
func esc(s string) string {
	return templ.EscapeString(s)
}

// layout wraps a body component in the shared HTML skeleton.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>%s</title>
<link rel="stylesheet" href="/static/styles.css"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
</head>
<body>
<main class="container">
`, esc(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

// UploadPage renders the initial view: two file pickers and the submit form.
// errMsg and action carry the last failure, if any.
func UploadPage(errMsg, action, code string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="card upload">
<h1>Smart Allocation Engine</h1>
<p class="subtitle">Upload the candidates and internships datasets to generate allocations.</p>
`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := ErrorAlert(errMsg, action, code).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/allocate" enctype="multipart/form-data">
<div class="dropzones">
<label class="dropzone">
<span>Candidates CSV</span>
<input type="file" name="candidates" accept=".csv"/>
</label>
<label class="dropzone">
<span>Internships CSV</span>
<input type="file" name="internships" accept=".csv"/>
</label>
</div>
<button type="submit" class="primary">Generate Allocations</button>
</form>
</section>
`)
		return err
	})
	return layout("Smart Allocation Engine", body)
}

// ErrorAlert renders an inline error fragment in the portal's standard
// message/action/code shape.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<div class=\"alert error\" role=\"alert\">\n<strong>%s</strong>\n", esc(message)); err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, "<p>%s</p>\n", esc(action)); err != nil {
				return err
			}
		}
		if code != "" {
			if _, err := fmt.Fprintf(w, "<span class=\"code\">Code: %s</span>\n", esc(code)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>\n")
		return err
	})
}

// ResultsPage renders the allocation results with the live search box.
func ResultsPage(allocations []model.Allocation, query string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="card results">
<header class="bar">
<h1>Allocation Results</h1>
<nav>
<form method="post" action="/view/analytics"><button type="submit">View Analytics</button></form>
<a class="button" href="/export/allocations.csv">Export CSV</a>
<form method="post" action="/reset"><button type="submit" class="danger">Start Over</button></form>
</nav>
</header>
<input type="search" name="q" value="%s" placeholder="Filter by candidate, internship, or category"
 hx-get="/results/table" hx-trigger="keyup changed delay:300ms" hx-target="#results-table"/>
<div id="results-table">
`, esc(query)); err != nil {
			return err
		}
		if err := ResultsTable(allocations).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>\n</section>\n")
		return err
	})
	return layout("Allocation Results", body)
}

// ResultsTable renders just the table of allocations; the results page swaps
// it in place while the operator types a filter.
func ResultsTable(allocations []model.Allocation) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(allocations) == 0 {
			_, err := io.WriteString(w, `<p class="empty">No matching allocations.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<table>
<thead><tr><th>Candidate</th><th>Internship</th><th>Score</th><th>Category</th><th>Location</th><th>Reason</th></tr></thead>
<tbody>
`); err != nil {
			return err
		}
		for _, a := range allocations {
			category := a.Category
			if category == "" {
				category = "N/A"
			}
			location := a.Location
			if location == "" {
				location = "N/A"
			}
			if _, err := fmt.Fprintf(w,
				"<tr><td>%s</td><td>%s</td><td>%.1f</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				esc(a.Candidate), esc(a.Internship), a.Score, esc(category), esc(location), esc(a.Reason)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody>\n</table>\n")
		return err
	})
}

// AnalyticsPage renders the aggregated summaries as simple tables; the
// charts on top of them are purely presentational.
func AnalyticsPage(summary analytics.Summary) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="card analytics">
<header class="bar">
<h1>Allocation Analytics</h1>
<nav>
<form method="post" action="/view/results"><button type="submit">Back to Results</button></form>
<form method="post" action="/reset"><button type="submit" class="danger">Start Over</button></form>
</nav>
</header>
<div class="grid">
`); err != nil {
			return err
		}

		if err := countTable(w, "Candidates by Category", summary.Categories); err != nil {
			return err
		}
		if err := countTable(w, "Rural / Urban Split", summary.Areas); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<div class="panel">
<h2>Allocation Status</h2>
<table><tbody>
<tr><td>Allocated</td><td>%d</td></tr>
<tr><td>Unallocated</td><td>%d</td></tr>
</tbody></table>
</div>
`, summary.Status.Allocated, summary.Status.Unallocated); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<div class="panel">
<h2>Score Distribution</h2>
<table><tbody>
`); err != nil {
			return err
		}
		for _, bin := range summary.Scores {
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td></tr>\n", esc(bin.Range), bin.Count); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table>\n</div>\n"); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<div class="panel">
<h2>Capacity Utilization</h2>
<table>
<thead><tr><th>Internship</th><th>Capacity</th><th>Allocated</th></tr></thead>
<tbody>
`); err != nil {
			return err
		}
		for _, row := range summary.Capacity {
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%d</td></tr>\n",
				esc(row.Internship), row.Capacity, row.Allocated); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table>\n</div>\n"); err != nil {
			return err
		}

		if err := countTable(w, "Allocations by Location", summary.Locations); err != nil {
			return err
		}

		_, err := io.WriteString(w, "</div>\n</section>\n")
		return err
	})
	return layout("Allocation Analytics", body)
}

// countTable writes one label/count panel.
func countTable(w io.Writer, title string, rows []analytics.LabelCount) error {
	if _, err := fmt.Fprintf(w, "<div class=\"panel\">\n<h2>%s</h2>\n<table><tbody>\n", esc(title)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td></tr>\n", esc(row.Label), row.Count); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tbody></table>\n</div>\n")
	return err
}

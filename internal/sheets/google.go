package sheets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// valueInput keeps cells as literal text so names starting with '=' are never evaluated
const valueInput = "RAW"

// GoogleConfig holds service-account credentials for a spreadsheet
type GoogleConfig struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	PrivateKey          string
}

// GoogleDocument is a Document backed by the Google Sheets API
type GoogleDocument struct {
	id  string
	svc *gsheets.Service
}

// OpenGoogle authenticates with a service account and verifies the spreadsheet is reachable
func OpenGoogle(ctx context.Context, cfg GoogleConfig) (*GoogleDocument, error) {
	if cfg.SpreadsheetID == "" || cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, ErrMissingCredentials
	}

	conf := &oauthjwt.Config{
		Email: cfg.ServiceAccountEmail,
		// Keys pasted into env files usually carry escaped newlines
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{gsheets.SpreadsheetsScope, gsheets.DriveFileScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(conf.Client(context.Background())))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	doc := &GoogleDocument{id: cfg.SpreadsheetID, svc: svc}
	if err := doc.Ping(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}

// Ping loads the spreadsheet metadata
func (d *GoogleDocument) Ping(ctx context.Context) error {
	_, err := d.svc.Spreadsheets.Get(d.id).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to load spreadsheet: %w", err)
	}
	return nil
}

func (d *GoogleDocument) Sheet(ctx context.Context, title string) (Sheet, error) {
	ss, err := d.svc.Spreadsheets.Get(d.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to load spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return &googleSheet{doc: d, title: title}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", title, ErrSheetNotFound)
}

func (d *GoogleDocument) AddSheet(ctx context.Context, title string, header []string) (Sheet, error) {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := d.svc.Spreadsheets.BatchUpdate(d.id, req).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to add sheet %s: %w", title, err)
	}

	s := &googleSheet{doc: d, title: title}
	if err := s.SetHeader(ctx, header); err != nil {
		return nil, err
	}
	return s, nil
}

type googleSheet struct {
	doc   *GoogleDocument
	title string
}

func (s *googleSheet) Title() string {
	return s.title
}

// a1 builds an A1 range on this sheet, quoting the title
func (s *googleSheet) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(s.title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func (s *googleSheet) Header(ctx context.Context) ([]string, error) {
	vr, err := s.doc.svc.Spreadsheets.Values.Get(s.doc.id, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", s.title, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return toStrings(vr.Values[0]), nil
}

func (s *googleSheet) SetHeader(ctx context.Context, header []string) error {
	if err := s.ensureColumns(ctx, int64(len(header))); err != nil {
		return err
	}

	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err := s.doc.svc.Spreadsheets.Values.Update(s.doc.id, s.a1("A1"), vr).
		ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header of %s: %w", s.title, err)
	}
	return nil
}

// ensureColumns grows the grid so that writes up to column n are accepted.
// New tabs start with 26 columns and the API rejects ranges beyond the grid.
func (s *googleSheet) ensureColumns(ctx context.Context, n int64) error {
	ss, err := s.doc.svc.Spreadsheets.Get(s.doc.id).
		Fields("sheets.properties(sheetId,title,gridProperties.columnCount)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to load grid of %s: %w", s.title, err)
	}

	var props *gsheets.SheetProperties
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.title {
			props = sh.Properties
			break
		}
	}
	if props == nil {
		return fmt.Errorf("%s: %w", s.title, ErrSheetNotFound)
	}

	var count int64
	if props.GridProperties != nil {
		count = props.GridProperties.ColumnCount
	}
	if count >= n {
		return nil
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AppendDimension: &gsheets.AppendDimensionRequest{
				SheetId:   props.SheetId,
				Dimension: "COLUMNS",
				Length:    n - count,
			},
		}},
	}
	if _, err := s.doc.svc.Spreadsheets.BatchUpdate(s.doc.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add columns to %s: %w", s.title, err)
	}
	return nil
}

func (s *googleSheet) Rows(ctx context.Context) ([]*Row, error) {
	vr, err := s.doc.svc.Spreadsheets.Values.Get(s.doc.id, s.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", s.title, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}

	header := toStrings(vr.Values[0])
	rows := make([]*Row, 0, len(vr.Values)-1)
	for i, cells := range vr.Values[1:] {
		// The API trims trailing empty cells; NewRow pads them back
		rows = append(rows, NewRow(i+2, header, toStrings(cells)))
	}
	return rows, nil
}

func (s *googleSheet) SaveRows(ctx context.Context, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}

	data := make([]*gsheets.ValueRange, len(rows))
	for i, row := range rows {
		data[i] = &gsheets.ValueRange{
			Range:  s.a1(fmt.Sprintf("A%d", row.Number)),
			Values: [][]interface{}{toCells(row.Values())},
		}
	}

	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: valueInput, Data: data}
	if _, err := s.doc.svc.Spreadsheets.Values.BatchUpdate(s.doc.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to save rows of %s: %w", s.title, err)
	}
	return nil
}

func (s *googleSheet) AppendRow(ctx context.Context, values map[string]string) error {
	header, err := s.Header(ctx)
	if err != nil {
		return err
	}

	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(ValuesFor(header, values))}}
	_, err = s.doc.svc.Spreadsheets.Values.Append(s.doc.id, s.a1("A1"), vr).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row to %s: %w", s.title, err)
	}
	return nil
}

func toStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

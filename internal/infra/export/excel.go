package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	ProfilesSheet = "LinkedIn Profiles"
	SummarySheet  = "Summary"
)

var headerColors = map[category]string{
	catIdentity:     "575ECF",
	catContact:      "7B80E0",
	catProfessional: "1B1B1B",
	catAbout:        "3D3D3D",
	catMeta:         "86888A",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "D9D9D9", Style: 1},
	{Type: "right", Color: "D9D9D9", Style: 1},
	{Type: "top", Color: "D9D9D9", Style: 1},
	{Type: "bottom", Color: "D9D9D9", Style: 1},
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

func calibri(size float64, bold bool, color string) *excelize.Font {
	return &excelize.Font{Family: "Calibri", Size: size, Bold: bold, Color: color}
}

type styles struct {
	header   map[category]int
	body     int
	alt      int
	name     int
	hasEmail int
	noEmail  int
	hasPhone int
	link     int
	source   int
}

func newStyles(f *excelize.File) (*styles, error) {
	s := &styles{header: make(map[category]int, len(headerColors))}
	wrap := &excelize.Alignment{WrapText: true, Vertical: "top"}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	for cat, color := range headerColors {
		id, err := f.NewStyle(&excelize.Style{
			Font:      calibri(11, true, "FFFFFF"),
			Fill:      solid(color),
			Border:    thinBorder,
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		})
		if err != nil {
			return nil, err
		}
		s.header[cat] = id
	}

	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.body, &excelize.Style{Font: calibri(10, false, ""), Border: thinBorder, Alignment: wrap}},
		{&s.alt, &excelize.Style{Font: calibri(10, false, ""), Fill: solid("F2F4F8"), Border: thinBorder, Alignment: wrap}},
		{&s.name, &excelize.Style{Font: calibri(11, true, "1B1B1B"), Border: thinBorder, Alignment: wrap}},
		{&s.hasEmail, &excelize.Style{Font: calibri(10, true, ""), Fill: solid("C6EFCE"), Border: thinBorder, Alignment: wrap}},
		{&s.noEmail, &excelize.Style{Font: calibri(10, false, ""), Fill: solid("FFC7CE"), Border: thinBorder, Alignment: wrap}},
		{&s.hasPhone, &excelize.Style{Font: calibri(10, false, ""), Fill: solid("E8E9F7"), Border: thinBorder, Alignment: wrap}},
		{&s.link, &excelize.Style{Font: &excelize.Font{Family: "Calibri", Size: 10, Color: "575ECF", Underline: "single"}, Border: thinBorder, Alignment: wrap}},
		{&s.source, &excelize.Style{Font: calibri(9, false, "666666"), Border: thinBorder, Alignment: center}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, err
		}
		*d.dst = id
	}
	return s, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func writeExcel(path string, data [][]string, summary Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProfilesSheet); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("创建样式失败: %w", err)
	}
	if err := writeProfiles(f, st, data); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", ProfilesSheet, err)
	}
	if err := writeSummary(f, summary); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", SummarySheet, err)
	}

	idx, err := f.GetSheetIndex(ProfilesSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeProfiles(f *excelize.File, st *styles, data [][]string) error {
	sheet := ProfilesSheet
	for i, c := range columns {
		cell := cellName(i, 1)
		if err := f.SetCellStr(sheet, cell, c.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, st.header[c.category]); err != nil {
			return err
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, colName, colName, c.width); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(sheet, 1, 30); err != nil {
		return err
	}

	for r, row := range data {
		rowNum := r + 2
		base := st.body
		if r%2 == 1 {
			base = st.alt
		}
		for c, value := range row {
			cell := cellName(c, rowNum)
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return err
			}
			style := base
			switch c {
			case colName:
				style = st.name
			case colEmail:
				style = st.noEmail
				if value != "" {
					style = st.hasEmail
				}
			case colPhone:
				if value != "" {
					style = st.hasPhone
				}
			case colWebsite, colURL:
				if strings.HasPrefix(value, "http") {
					if err := f.SetCellHyperLink(sheet, cell, value, "External"); err != nil {
						return err
					}
					style = st.link
				}
			case colSource:
				style = st.source
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}
	lastCell := cellName(len(columns)-1, len(data)+1)
	return f.AutoFilter(sheet, "A1:"+lastCell, nil)
}

// Summary 汇总页的统计数据
type Summary struct {
	Keywords    string
	Location    string
	GeneratedAt time.Time
	Total       int
	WithEmail   int
	WithPhone   int
	FromAPI     int
	FromProfile int
	FromSearch  int
}

func summarize(data [][]string, keywords, location string, at time.Time) Summary {
	s := Summary{Keywords: keywords, Location: location, GeneratedAt: at, Total: len(data)}
	for _, row := range data {
		if row[colEmail] != "" {
			s.WithEmail++
		}
		if row[colPhone] != "" {
			s.WithPhone++
		}
		switch row[colSource] {
		case "api":
			s.FromAPI++
		case "profile":
			s.FromProfile++
		case "search":
			s.FromSearch++
		}
	}
	return s
}

func pct(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", part*100/total)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func writeSummary(f *excelize.File, s Summary) error {
	sheet := SummarySheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.MoveSheet(sheet, ProfilesSheet); err != nil {
		return err
	}

	title, err := f.NewStyle(&excelize.Style{
		Font:      calibri(16, true, "575ECF"),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	label, err := f.NewStyle(&excelize.Style{Font: calibri(11, true, "333333")})
	if err != nil {
		return err
	}
	value, err := f.NewStyle(&excelize.Style{Font: calibri(11, false, "")})
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, "A1", "LinkedIn Profiles Report"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, 40); err != nil {
		return err
	}

	stats := [][2]string{
		{"Search Keywords", orDefault(s.Keywords, "N/A")},
		{"Location", orDefault(s.Location, "Any")},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04")},
		{},
		{"Total Profiles", fmt.Sprint(s.Total)},
		{"With Email", fmt.Sprintf("%d (%s)", s.WithEmail, pct(s.WithEmail, s.Total))},
		{"With Phone", fmt.Sprintf("%d (%s)", s.WithPhone, pct(s.WithPhone, s.Total))},
		{},
		{"Data from API", fmt.Sprintf("%d (%s)", s.FromAPI, pct(s.FromAPI, s.Total))},
		{"Data from Profile page", fmt.Sprintf("%d (%s)", s.FromProfile, pct(s.FromProfile, s.Total))},
		{"Data from Search only", fmt.Sprintf("%d (%s)", s.FromSearch, pct(s.FromSearch, s.Total))},
	}
	for i, kv := range stats {
		if kv[0] == "" {
			continue
		}
		row := i + 3
		if err := f.SetCellStr(sheet, cellName(0, row), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cellName(1, row), kv[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(0, row), cellName(0, row), label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), value); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 35)
}

package affinity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/storage/atomicfile"
)

const header = "channelName;category"

// Load reads the channel table. A missing file is an empty table.
func Load(path string) ([]domain.ChannelAffinity, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ';'-delimited rows. Quotes and carriage returns are dropped,
// the header and blank rows are skipped.
func Parse(r io.Reader) ([]domain.ChannelAffinity, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cleaned := strings.NewReplacer(`"`, "", "\r", "").Replace(string(raw))

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []domain.ChannelAffinity
	for line := 0; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("channel table: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		if line == 0 && name == "channelName" {
			continue
		}
		row := domain.ChannelAffinity{ChannelName: name}
		if len(record) > 1 {
			row.Category = strings.TrimSpace(record[1])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save replaces the table at path. Uncurated rows are written as "name;;"
// so the empty category column is easy to fill in by hand.
func Save(path string, rows []domain.ChannelAffinity) error {
	return atomicfile.WriteFile(path, func(w io.Writer) error {
		var b strings.Builder
		b.WriteString(header)
		b.WriteString("\n")
		for _, r := range rows {
			if r.Category == "" {
				fmt.Fprintf(&b, "%s;;\n", r.ChannelName)
				continue
			}
			fmt.Fprintf(&b, "%s;%s\n", r.ChannelName, r.Category)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

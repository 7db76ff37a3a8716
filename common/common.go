package common

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// marshal data structure to JSON
func ToJSON(x interface{}) []byte {
	bytes, err := json.MarshalIndent(x, "", "\t")
	if err != nil {
		log.Fatalf("[common] error marshaling %T to JSON: %v", x, err)
	}
	return bytes
}

// read JSON from file, unmarshal into data structure
func FromFile(path string, x interface{}) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("[common] error opening file %s: %v", path, err)
	}
	defer file.Close()

	// read file as byte array
	bytes, _ := ioutil.ReadAll(file)
	if err := json.Unmarshal(bytes, x); err != nil {
		log.Fatalf(
			"[common] error unmarshaling json to output struct %T: %v (%s)",
			x,
			err,
			path,
		)
	}
}

// marshal data structure to JSON, write to file
func ToFile(path string, x interface{}) {
	bytes := ToJSON(x)

	// write byte array to file
	if err := ioutil.WriteFile(path, bytes, 0644); err != nil {
		log.Fatalf("[common] error writing struct %T to file: %v", x, err)
	}
}

// get min/max of []float64 slice
// returns (0, 0) for an empty slice
func GetMinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// CSVFile couples a csv writer with the file it writes to,
// so callers can flush and close in one step.
type CSVFile struct {
	*csv.Writer
	file *os.File
}

// create CSV writer with the given delimiter
// when append is set, rows are added to the end of an existing file
func OpenCSVWriter(path string, comma rune, appendMode bool) (*CSVFile, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv writer %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	w.Comma = comma
	return &CSVFile{Writer: w, file: file}, nil
}

// flush pending rows and close the underlying file
func (c *CSVFile) Close() error {
	c.Flush()
	if err := c.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("flush csv %s: %w", c.file.Name(), err)
	}
	return c.file.Close()
}

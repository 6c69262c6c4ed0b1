package model

// Record is one data row; cells are aligned with the owning Dataset's Header.
type Record []string

// Dataset is an uploaded table with a header row.
type Dataset struct {
	Name    string
	Header  []string
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Index returns the position of column name in the header, or -1.
func (d *Dataset) Index(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the dataset has column name.
func (d *Dataset) Has(name string) bool {
	return d.Index(name) >= 0
}

// Head returns up to n leading records.
func (d *Dataset) Head(n int) []Record {
	if n > len(d.Records) {
		n = len(d.Records)
	}
	if n < 0 {
		n = 0
	}
	return d.Records[:n]
}

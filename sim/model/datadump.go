package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/psim-dev/psim/sim"
)

// column is one CSV field sampled at every dump.
type column struct {
	header string
	value  func() string
}

// DataDump periodically writes queue lengths and utilisations of the nodes
// that report them as CSV rows:
//
//	v-time,<name>QueueLength,<name>Utilisation,...
type DataDump struct {
	period  float64
	out     *csv.Writer
	columns []column
	rows    int
	err     error
}

// NewDataDump resolves which nodes report what once, up front.
func NewDataDump(period float64, w io.Writer, nodes []Node) *DataDump {
	if !(period > 0) {
		panic(fmt.Sprintf("NewDataDump: period must be positive, got %v", period))
	}
	d := &DataDump{period: period, out: csv.NewWriter(w)}
	for _, n := range nodes {
		if q, ok := n.(QueueReporter); ok {
			d.columns = append(d.columns, column{
				header: n.Name() + "QueueLength",
				value:  func() string { return strconv.Itoa(q.QueueLength()) },
			})
		}
		if u, ok := n.(UtilisationReporter); ok {
			d.columns = append(d.columns, column{
				header: n.Name() + "Utilisation",
				value:  func() string { return strconv.FormatFloat(u.Utilisation(), 'g', -1, 64) },
			})
		}
	}
	return d
}

// Run writes the header, then a row every period.
func (d *DataDump) Run(p *sim.Proc) {
	header := []string{"v-time"}
	for _, c := range d.columns {
		header = append(header, c.header)
	}
	if !d.write(header) {
		return
	}
	for {
		p.Hold(d.period)
		row := make([]string, 0, len(d.columns)+1)
		row = append(row, strconv.FormatFloat(p.Now(), 'g', -1, 64))
		for _, c := range d.columns {
			row = append(row, c.value())
		}
		if !d.write(row) {
			return
		}
		d.rows++
	}
}

func (d *DataDump) write(record []string) bool {
	if err := d.out.Write(record); err != nil {
		d.err = err
	} else {
		d.out.Flush()
		d.err = d.out.Error()
	}
	if d.err != nil {
		logrus.Errorf("data dump stopped: %v", d.err)
		return false
	}
	return true
}

// Rows returns the number of data rows written, excluding the header.
func (d *DataDump) Rows() int { return d.rows }

// Err returns the write error that stopped the dump, if any.
func (d *DataDump) Err() error { return d.err }

package app

import (
	"fmt"

	"rtk/internal/buildinfo"
	"rtk/kernel"

	"github.com/inhies/go-bytesize"
)

// monitor draws the task table on the display from the idle loop.
type monitor struct {
	k     *kernel.Kernel
	d     *fbDisplay
	con   *console
	names []string
	infos []kernel.TaskInfo
	lines []string
}

func (m *monitor) render(status string) {
	if m.d == nil {
		return
	}
	m.infos = m.k.Tasks(m.infos[:0])
	m.lines = append(m.lines[:0],
		fmt.Sprintf("rtk %s  t=%dms  switches=%d", buildinfo.Short(), m.k.Ticks(), m.k.Switches()),
	)
	m.lines = appendTaskTable(m.lines, m.infos, m.names, m.k.Config().StackWords)
	if status != "" {
		m.lines = append(m.lines, "", status)
	}

	w, h := m.d.Size()
	if m.con != nil {
		h = m.con.top()
	}
	_ = m.d.FillRectangle(0, 0, w, h, colorBlack)
	if lineH := int16(screenFont.YAdvance); lineH > 0 && h >= lineH {
		m.d.textRows(m.lines, 0, int(h/lineH), colorGreen)
	}
	m.con.flush()
	_ = m.d.Display()
}

// appendTaskTable formats one row per used slot. Stack use is measured at
// the task's last context save.
func appendTaskTable(dst []string, infos []kernel.TaskInfo, names []string, stackWords int) []string {
	dst = append(dst, "ID NAME       PRI STATE     STACK")
	size := bytesize.New(float64(stackWords * wordBytes)).String()
	for _, info := range infos {
		if !info.Used() {
			continue
		}
		name := "-"
		if int(info.ID) < len(names) && names[info.ID] != "" {
			name = names[info.ID]
		}
		used := int(info.StackBase-info.StackPointer) * wordBytes
		dst = append(dst, fmt.Sprintf("%2d %-10s %3d %-9s %dB/%s",
			info.ID, name, info.Priority, info.State, used, size))
	}
	return dst
}

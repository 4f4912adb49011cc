package watch

type TabType int

const (
	TabMemory TabType = iota
	TabGC
	TabThreads
	TabSystem
)

func (t TabType) String() string {
	switch t {
	case TabMemory:
		return "Memory"
	case TabGC:
		return "GC"
	case TabThreads:
		return "Threads"
	case TabSystem:
		return "System"
	default:
		return "Unknown"
	}
}

func GetAllTabs() []TabType {
	return []TabType{TabMemory, TabGC, TabThreads, TabSystem}
}

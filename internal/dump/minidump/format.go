package minidump

// On-disk minidump structures, little-endian throughout. Field names follow
// the Windows MINIDUMP_* definitions so the binary.Read layouts line up with
// the documented format.

// Signature is the 4-byte magic at the start of every minidump ("MDMP").
const Signature = 0x504D444D

// Stream types this extractor consumes.
const (
	threadListStream = 3
	moduleListStream = 4
	exceptionStream  = 6
	systemInfoStream = 7
	miscInfoStream   = 15
)

// Processor architecture codes from MINIDUMP_SYSTEM_INFO.
const (
	archIntel = 0
	archARM   = 5
	archAMD64 = 9
	archARM64 = 12
)

// miscInfoProcessID flags the ProcessId field of MINIDUMP_MISC_INFO as valid.
const miscInfoProcessID = 0x00000001

type header struct {
	Signature          uint32
	Version            uint32
	NumberOfStreams    uint32
	StreamDirectoryRVA uint32
	CheckSum           uint32
	TimeDateStamp      uint32
	Flags              uint64
}

type directoryEntry struct {
	StreamType uint32
	DataSize   uint32
	RVA        uint32
}

type locationDescriptor struct {
	DataSize uint32
	RVA      uint32
}

type memoryDescriptor struct {
	StartOfMemoryRange uint64
	Memory             locationDescriptor
}

type systemInfo struct {
	ProcessorArchitecture uint16
	ProcessorLevel        uint16
	ProcessorRevision     uint16
	NumberOfProcessors    uint8
	ProductType           uint8
	MajorVersion          uint32
	MinorVersion          uint32
	BuildNumber           uint32
	PlatformID            uint32
	CSDVersionRVA         uint32
	SuiteMask             uint16
	Reserved2             uint16
}

type exceptionInfo struct {
	ThreadID             uint32
	Alignment            uint32
	ExceptionCode        uint32
	ExceptionFlags       uint32
	ExceptionRecord      uint64
	ExceptionAddress     uint64
	NumberParameters     uint32
	UnusedAlignment      uint32
	ExceptionInformation [15]uint64
	ThreadContext        locationDescriptor
}

type moduleEntry struct {
	BaseOfImage   uint64
	SizeOfImage   uint32
	CheckSum      uint32
	TimeDateStamp uint32
	ModuleNameRVA uint32
	VersionInfo   [13]uint32 // VS_FIXEDFILEINFO
	CvRecord      locationDescriptor
	MiscRecord    locationDescriptor
	Reserved0     uint64
	Reserved1     uint64
}

type threadEntry struct {
	ThreadID      uint32
	SuspendCount  uint32
	PriorityClass uint32
	Priority      uint32
	TEB           uint64
	Stack         memoryDescriptor
	ThreadContext locationDescriptor
}

type miscInfo struct {
	SizeOfInfo        uint32
	Flags1            uint32
	ProcessID         uint32
	ProcessCreateTime uint32
	ProcessUserTime   uint32
	ProcessKernelTime uint32
}

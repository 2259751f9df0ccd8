package iothreads

// Priority is one of the four worker-pool scheduling classes. Declared
// in dequeue scan order: High drains before Normal, Normal before Low,
// Low before Least.
type Priority int

const (
	High Priority = iota
	Normal
	Low
	Least

	numPriorities = 4
)

func (p Priority) String() string {
	switch p {
	case High:
		return "High"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	case Least:
		return "Least"
	default:
		return "Unknown"
	}
}

// highOps are metadata reads.
var highOps = map[string]bool{
	"open": true, "stat": true, "lookup": true, "access": true,
	"readlink": true, "opendir": true, "statfs": true, "readdir": true,
	"readdirp": true, "getactivelk": true, "setactivelk": true,
	"icreate": true, "namelink": true,
}

// normalOps are mutations.
var normalOps = map[string]bool{
	"create": true, "flush": true, "lk": true, "inodelk": true,
	"entrylk": true, "lease": true, "unlink": true, "setattr": true,
	"mknod": true, "mkdir": true, "rmdir": true, "symlink": true,
	"rename": true, "link": true, "getxattr": true, "setxattr": true,
	"removexattr": true, "fgetxattr": true, "fsetxattr": true,
	"fremovexattr": true, "put": true,
}

// lowOps are bulk data operations.
var lowOps = map[string]bool{
	"read": true, "write": true, "fsync": true, "truncate": true,
	"ftruncate": true, "fsyncdir": true, "xattrop": true, "fxattrop": true,
	"rchecksum": true, "fallocate": true, "discard": true,
	"zerofill": true, "seek": true,
}

// skipOps are routed synchronously by the caller and never enter a
// priority queue.
var skipOps = map[string]bool{
	"forget": true, "release": true, "releasedir": true, "getspec": true,
}

// Classify maps a stub's filesystem operation to a scheduling priority.
// isServicePID overrides every other classification to Least, matching
// the rule that any frame from a special service PID is deprioritized
// regardless of its operation. skip reports that operation is routed
// synchronously and must never be scheduled. err is an InvalidArgument
// error when operation matches neither a priority class nor a skip
// entry (ipc and any unrecognized operation are rejected).
func Classify(operation string, isServicePID bool) (pri Priority, skip bool, err error) {
	if isServicePID {
		return Least, false, nil
	}
	if skipOps[operation] {
		return 0, true, nil
	}
	if highOps[operation] {
		return High, false, nil
	}
	if normalOps[operation] {
		return Normal, false, nil
	}
	if lowOps[operation] {
		return Low, false, nil
	}
	return 0, false, NewInvalidArgumentError("unclassifiable operation: " + operation)
}

package extractor

// File names used inside an execution sandbox.
const (
	artifactFile = "artifact.py"
	harnessFile  = "harness.py"
)

// exitMissingEntry is the harness exit status when the loaded module has no
// attribute named after the entry point.
const exitMissingEntry = 3

// harnessSource loads the artifact as a module, calls the entry point named
// by argv[2] and writes its string result to stdout. A module without the
// attribute exits with exitMissingEntry; any other failure exits non-zero
// with a message on stderr.
const harnessSource = `import importlib.util
import sys

spec = importlib.util.spec_from_file_location("candidate", sys.argv[1])
module = importlib.util.module_from_spec(spec)
spec.loader.exec_module(module)

if not hasattr(module, sys.argv[2]):
    sys.stderr.write("entry point %s is not defined\n" % sys.argv[2])
    sys.exit(3)

entry = getattr(module, sys.argv[2])
if not callable(entry):
    sys.exit("entry point %s is not callable" % sys.argv[2])

result = entry()
if not isinstance(result, str):
    sys.exit("entry point returned %s, not str" % type(result).__name__)

sys.stdout.write(result)
sys.stdout.flush()
`

// Package pathkey turns paths into the fixed-width lookup keys used by the
// session tables.
//
// Both the coordinator and the agent must derive the exact same key for the
// same logical path, so the rules are strict: paths are normalized with
// FixPath, case-folded when the session's filesystem is case-insensitive, and
// only then hashed. The tables never recompute keys; callers compute a key
// once per distinct path string and pass it down.
package pathkey

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Size is the width of a Key in bytes. Keys are transmitted as raw bytes on
// the wire, so this value is part of the coordinator protocol.
const Size = 16

// Key is the fixed-width content hash of a normalized path. Two paths that
// normalize identically hash identically; a zero Key means "no key" (for
// example a relative path that was passed through unresolved).
type Key [Size]byte

// Zero is the null key.
var Zero Key

// pathDomainKey is the 32-byte key for BLAKE3 keyed hashing. Domain
// separation keeps path keys from colliding with any other hash the agent
// computes over the same bytes. The value is ASCII, zero-padded, so it is
// recognizable in hex dumps; changing it breaks every key both sides hold.
var pathDomainKey = [32]byte{
	'a', 'g', 'e', 'n', 't', 'f', 's', '.',
	'p', 'a', 't', 'h', 'k', 'e', 'y', 0,
}

func (k Key) IsZero() bool {
	return k == Zero
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// FromPath hashes an already normalized (and, on case-insensitive sessions,
// case-folded) path into a Key.
func FromPath(nameForKey string) Key {
	hasher, err := blake3.NewKeyed(pathDomainKey[:])
	if err != nil {
		// NewKeyed only fails on a wrong key length, which is a compile-time
		// constant here.
		panic(err)
	}
	hasher.Write([]byte(nameForKey))
	var sum [32]byte
	hasher.Sum(sum[:0])

	var k Key
	copy(k[:], sum[:Size])
	return k
}

// ForKey prepares a normalized path for hashing: case-insensitive sessions
// fold to lower case so "C:/Foo" and "c:/foo" share one key.
func ForKey(normalized string, caseInsensitive bool) string {
	if caseInsensitive {
		return strings.ToLower(normalized)
	}
	return normalized
}

// IsAbsolute reports whether p is absolute in either the Unix sense or the
// Windows drive-letter sense. The agent sees paths in the intercepted tool's
// native form, which may be either.
func IsAbsolute(p string) bool {
	if len(p) > 0 && (p[0] == '/' || p[0] == '\\') {
		return true
	}
	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		return true
	}
	return false
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// FixPath resolves p against workingDir when relative and normalizes the
// result: backslashes become forward slashes, "." and ".." elements and
// repeated separators collapse, and any trailing separator is dropped (except
// for the root itself). The result is the canonical form every table key is
// derived from.
func FixPath(p, workingDir string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !IsAbsolute(p) && workingDir != "" {
		wd := strings.ReplaceAll(workingDir, "\\", "/")
		p = wd + "/" + p
	}

	// Split off a Windows drive prefix so "C:" survives cleaning.
	drive := ""
	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		drive = p[:2]
		p = p[2:]
	}

	elems := strings.Split(p, "/")
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch e {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, e)
		}
	}

	cleaned := drive + "/" + strings.Join(out, "/")
	if len(out) == 0 {
		return drive + "/"
	}
	return cleaned
}

// Split cuts a normalized path into its parent directory and leaf name.
// ok is false when the path has no separator (not an absolute path).
func Split(p string) (dir, leaf string, ok bool) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", "", false
	}
	if i == 0 {
		return "/", p[1:], true
	}
	return p[:i], p[i+1:], true
}

// DirHash carries a directory's own key plus enough state to derive the keys
// of its children during directory population, where one listing produces
// many child keys under the same parent.
type DirHash struct {
	Key Key

	dir string // normalized and case-folded, no trailing separator
}

// NewDirHash builds the hash state for a directory path that is already
// normalized and case-folded.
func NewDirHash(nameForKey string) DirHash {
	return DirHash{Key: FromPath(nameForKey), dir: nameForKey}
}

// Child derives the key of a directory entry. name must already be
// case-folded to match the session's filesystem semantics.
func (d DirHash) Child(name string) Key {
	if d.dir == "/" {
		return FromPath("/" + name)
	}
	return FromPath(d.dir + "/" + name)
}

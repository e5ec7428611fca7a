package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildbeam/agentfs/internal/protocol/wire"
	"github.com/buildbeam/agentfs/pkg/pathkey"
)

type dirEntry struct {
	name      string
	attrs     uint32
	lastWrite uint64
	size      uint64
}

// appendDirListing encodes one directory-stream block (key, listing byte
// count, listing) and returns the listing's table offset.
func appendDirListing(w *wire.Writer, dirKey pathkey.Key, entries []dirEntry) uint32 {
	var listing wire.Writer
	listing.WriteVarint(uint64(len(entries)))
	for _, e := range entries {
		listing.WriteString(e.name)
		listing.WriteVarint(uint64(e.attrs))
		listing.WriteVarint(e.lastWrite)
		listing.WriteVarint(e.size)
	}

	w.WriteKey(dirKey)
	w.WriteVarint(uint64(listing.Len()))
	offset := uint32(w.Len())
	w.WriteRaw(listing.Bytes())
	return offset
}

func TestDirTable_ParseIndexesListings(t *testing.T) {
	hash := pathkey.NewDirHash("/proj/src")

	var w wire.Writer
	offset := appendDirListing(&w, hash.Key, []dirEntry{
		{name: "main.c", attrs: AttrFile, lastWrite: 111, size: 42},
	})

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, uint32(w.Len()), tbl.Cursor())

	// The block is indexed but its listing is not decoded until queried.
	got := tbl.Lookup(hash, hash.Child("main.c"), false)
	require.NotEqual(t, InvalidOffset, got)
	assert.Equal(t, offset+offsetOfFirstEntryInfo("main.c"), got)
}

// offsetOfFirstEntryInfo is the byte distance from the start of a listing to
// the first entry's metadata: the count varint plus the name string.
func offsetOfFirstEntryInfo(name string) uint32 {
	var w wire.Writer
	w.WriteVarint(1)
	w.WriteString(name)
	return uint32(w.Len())
}

func TestDirTable_ParseIsIdempotent(t *testing.T) {
	hash := pathkey.NewDirHash("/proj")

	var w wire.Writer
	appendDirListing(&w, hash.Key, nil)

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	size := uint32(w.Len())
	tbl.Parse(size)
	tbl.Parse(size)
	tbl.Parse(1)

	assert.Equal(t, size, tbl.Cursor())
	assert.Equal(t, 1, tbl.Len())
}

func TestDirTable_EntryExistsTriState(t *testing.T) {
	hash := pathkey.NewDirHash("/proj/src")
	entryKey := hash.Child("main.c")

	tbl := NewDirectoryTable(false)

	// Unknown parent directory.
	exists, offset := tbl.EntryExists(entryKey, "/proj/src/main.c", false)
	assert.Equal(t, ExistsMaybe, exists)
	assert.Equal(t, InvalidOffset, offset)

	var w wire.Writer
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "main.c", attrs: AttrFile, lastWrite: 1, size: 10},
	})
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	// Known but not yet populated: still Maybe, a bare probe does not decode.
	exists, _ = tbl.EntryExists(entryKey, "/proj/src/main.c", false)
	assert.Equal(t, ExistsMaybe, exists)

	require.NotEqual(t, InvalidOffset, tbl.Lookup(hash, entryKey, false))

	exists, offset = tbl.EntryExists(entryKey, "/proj/src/main.c", false)
	assert.Equal(t, ExistsYes, exists)
	assert.NotEqual(t, InvalidOffset, offset)

	exists, _ = tbl.EntryExists(hash.Child("absent.c"), "/proj/src/absent.c", false)
	assert.Equal(t, ExistsNo, exists)
}

func TestDirTable_EntryExistsKnownDirectory(t *testing.T) {
	hash := pathkey.NewDirHash("/proj/src")

	var w wire.Writer
	appendDirListing(&w, hash.Key, nil)

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	exists, offset := tbl.EntryExists(hash.Key, "/proj/src", true)
	assert.Equal(t, ExistsYes, exists)
	assert.NotZero(t, offset&DirectoryBit)

	info, ok := tbl.GetEntryInformation(offset)
	require.True(t, ok)
	assert.True(t, info.IsDirectory())
}

func TestDirTable_LookupTagsDirectories(t *testing.T) {
	hash := pathkey.NewDirHash("/proj")

	var w wire.Writer
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "src", attrs: AttrDirectory, lastWrite: 5, size: 0},
		{name: "notes.txt", attrs: AttrFile, lastWrite: 6, size: 99},
	})

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	dirOffset := tbl.Lookup(hash, hash.Child("src"), false)
	require.NotEqual(t, InvalidOffset, dirOffset)
	assert.NotZero(t, dirOffset&DirectoryBit)

	fileOffset := tbl.Lookup(hash, hash.Child("notes.txt"), false)
	require.NotEqual(t, InvalidOffset, fileOffset)
	assert.Zero(t, fileOffset&DirectoryBit)

	info, ok := tbl.GetEntryInformation(fileOffset)
	require.True(t, ok)
	assert.Equal(t, AttrFile, info.Attributes)
	assert.Equal(t, uint64(6), info.LastWrite)
	assert.Equal(t, uint64(99), info.Size)

	// Tagged offsets answer as plain directories without decoding.
	info, ok = tbl.GetEntryInformation(dirOffset)
	require.True(t, ok)
	assert.Equal(t, AttrDirectory, info.Attributes)

	assert.Equal(t, InvalidOffset, tbl.Lookup(hash, hash.Child("missing"), false))
}

func TestDirTable_TombstoneEntry(t *testing.T) {
	hash := pathkey.NewDirHash("/proj")

	var w wire.Writer
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "removed.o", attrs: 0, lastWrite: 0, size: 0},
	})

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	offset := tbl.Lookup(hash, hash.Child("removed.o"), false)
	require.NotEqual(t, InvalidOffset, offset)

	info, ok := tbl.GetEntryInformation(offset)
	require.True(t, ok)
	assert.Zero(t, info.Attributes)
}

func TestDirTable_RelistingResetsPopulation(t *testing.T) {
	hash := pathkey.NewDirHash("/proj")

	var w wire.Writer
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "old.c", attrs: AttrFile, lastWrite: 1, size: 1},
	})
	first := uint32(w.Len())

	tbl := NewDirectoryTable(false)
	tbl.Append(w.Bytes())
	tbl.Parse(first)

	require.NotEqual(t, InvalidOffset, tbl.Lookup(hash, hash.Child("old.c"), false))

	// A newer listing for the same directory supersedes the old one.
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "new.c", attrs: AttrFile, lastWrite: 2, size: 2},
	})
	tbl.Append(w.Bytes()[first:])
	tbl.Parse(uint32(w.Len()))

	assert.Equal(t, InvalidOffset, tbl.Lookup(hash, hash.Child("old.c"), false))
	assert.NotEqual(t, InvalidOffset, tbl.Lookup(hash, hash.Child("new.c"), false))
}

func TestDirTable_CaseInsensitiveEntries(t *testing.T) {
	hash := pathkey.NewDirHash("/proj")

	var w wire.Writer
	appendDirListing(&w, hash.Key, []dirEntry{
		{name: "Main.C", attrs: AttrFile, lastWrite: 1, size: 1},
	})

	tbl := NewDirectoryTable(true)
	tbl.Append(w.Bytes())
	tbl.Parse(uint32(w.Len()))

	// Entry names fold before child keys are derived, so a lookup by the
	// folded name hits.
	assert.NotEqual(t, InvalidOffset, tbl.Lookup(hash, hash.Child("main.c"), false))
}

func TestDirTable_GetEntryInformationInvalid(t *testing.T) {
	tbl := NewDirectoryTable(false)
	_, ok := tbl.GetEntryInformation(InvalidOffset)
	assert.False(t, ok)
}

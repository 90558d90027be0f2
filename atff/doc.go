// Package atff implements ATFF, a typed binary container for sectioned
// configuration, and the line-oriented authoring text it is compiled from.
//
// # Data Model
//
// A Document holds an ordered list of links and ordered, uniquely named
// sections. A section maps entry names to either a Scalar or a Table:
//
//	Scalars: int (int32), float (float32), bool, str (UTF-8)
//	Tables:  one level of key -> Scalar, never nested
//
// # Authoring Text
//
//	# comment
//	@https://example.com/plugin
//	[server]
//	port = 8080 : int
//	opts = [
//	debug = true : bool
//	name = prod : str
//	]
//
// The key ends at the first '=' and the type starts after the last ':',
// so string values may contain ':'. Bool values are true only for "true"
// in any letter case.
//
// # Binary Layout
//
// All integers are big-endian:
//
//	"ATFF" | u32 links  | (u16 len, bytes)*
//	       | u32 sections | (u16 len, name, u32 entries,
//	                         (u16 len, key, u8 tag, u32 len, value)*)*
//
// Tags: 1=int 2=float 3=bool 4=str 5=table. A table value is
// u32 count | (u16 len, key, u8 tag 1..4, u32 len, value)*.
//
// # Links
//
// Links name remote code. The codec never fetches or runs them itself: it
// hands each link to a Resolver (default NopResolver). A resolver failure
// is logged and ignored while encoding, and aborts a decode.
package atff

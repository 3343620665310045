// Package strm turns free-form text into .strm placeholder files.
//
// Sanitize maps arbitrary text onto a single safe filename, NewToken
// produces the random file body, and Writer puts the result on disk.
package strm

package segment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Fixed file names inside an index directory.
const (
	EntitiesFile    = "entities.idx"
	ReverseFile     = "reverse.idx"
	LengthCacheFile = "lengths.cache"
	IndexLockFile   = "index.lock"
	IdentLockFile   = "ident.lock"

	tokensPrefix   = "tokens-"
	postingsPrefix = "postings-"
	shardSuffix    = ".idx"
)

// TokensName is the token table file name of the shard for length.
func TokensName(length int) string {
	return fmt.Sprintf("%s%d%s", tokensPrefix, length, shardSuffix)
}

// PostingsName is the posting-row file name of the shard for length.
func PostingsName(length int) string {
	return fmt.Sprintf("%s%d%s", postingsPrefix, length, shardSuffix)
}

// TokensPath joins dir with TokensName.
func TokensPath(dir string, length int) string {
	return filepath.Join(dir, TokensName(length))
}

// PostingsPath joins dir with PostingsName.
func PostingsPath(dir string, length int) string {
	return filepath.Join(dir, PostingsName(length))
}

// ParseTokensName extracts the shard length from a token table file name.
func ParseTokensName(name string) (int, bool) {
	return parseShardName(name, tokensPrefix)
}

// IsShardFile reports whether name is a token table or posting-row file.
func IsShardFile(name string) bool {
	if _, ok := parseShardName(name, tokensPrefix); ok {
		return true
	}
	_, ok := parseShardName(name, postingsPrefix)
	return ok
}

func parseShardName(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, shardSuffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), shardSuffix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

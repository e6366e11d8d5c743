// Package services implements the upstream collaborators behind the soundpy workflow.
//
// # Catalog
//
// [YouTubeService] implements [Catalog] on the YouTube Data API v3. Search and
// playlist search use search.list; playlist listings page through
// playlistItems.list 50 items at a time. Every page waits on a token bucket so a
// burst of requests stays within the configured pace.
//
// Thumbnails resolve in a fixed order: maxres, standard, high, medium, default.
// A hit without any thumbnail keeps an empty value.
//
// # Extractor
//
// [Ytdlp] implements [Extractor] by running the yt-dlp executable. Metadata comes
// from -J, stream URLs from -g, and downloads land in a per-call temporary
// directory that is always removed before returning. In mp3 mode the file is
// tagged by [Tagger] with title, artist and a JPEG front cover.
//
// # Caching
//
// [CachedCatalog] and [CachedExtractor] wrap the collaborators with one bounded
// [cache.Memo] per operation.
//
// # Error Handling
//
// Failures come back as [shared.Error] values of kind upstream:
//   - [shared.ErrQuotaExceeded] : the API key ran out of quota
//   - [shared.ErrInvalidKey] : the API key was rejected
//   - [shared.ErrNotFound] : the playlist or video does not exist
//   - [shared.ErrExtractionFailed] : yt-dlp exited with an error
//   - [shared.ErrTimeout] : the call ran past its deadline
package services

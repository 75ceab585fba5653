// Package crawler runs the paginated diary crawl for a site.
//
// A Scheduler splits the listing over L lanes: lane i reads pages
// FirstPage+i, FirstPage+i+L, ... so no two lanes fetch the same page. Each
// lane stops independently on an empty or unreadable page, on the first
// post that is already catalogued, on a post whose page structure is
// unexpected, or at the page ceiling.
//
// A Runner wraps the scheduler with snapshot handling: it seeds the
// catalog from the site's snapshot, crawls, and rewrites the snapshot only
// when new posts were found. Backfill re-reads the body of catalogued posts
// that were stored without one.
package crawler

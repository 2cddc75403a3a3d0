package rag

// defaultCorpus is the built-in snippet set covering the headline and drawing
// workflows the demo tools implement. Keyword lists drive retrieval scoring.
var defaultCorpus = []Snippet{
	{
		ID:    "fetch-bbc-headlines",
		Title: "Fetching BBC Headlines",
		Body: "Use fetch_bbc_headlines with the number of headlines to fetch. " +
			"Headlines come from the BBC RSS feed and are written to bbc_headlines.txt " +
			"with a timestamp header.",
		Keywords: []string{"bbc", "headlines", "news", "fetch", "rss"},
	},
	{
		ID:    "display-headlines-browser",
		Title: "Displaying Headlines in Browser",
		Body: "After fetching, call display_headlines_in_browser to render headlines.html " +
			"and open it in a browser. The page counts down and closes itself.",
		Keywords: []string{"browser", "display", "show", "headlines", "html"},
	},
	{
		ID:    "read-article",
		Title: "Reading Full Articles",
		Body: "read_article fetches one headline link and extracts the readable article text. " +
			"Pass the URL returned alongside a fetched headline.",
		Keywords: []string{"article", "read", "url", "content"},
	},
	{
		ID:    "bbc-workflow",
		Title: "BBC Workflow",
		Body: "Fetch before display: first fetch_bbc_headlines, then display_headlines_in_browser " +
			"when the request asks to see the result.",
		Keywords: []string{"bbc", "workflow", "sequence", "order", "headlines"},
	},
	{
		ID:    "headline-file-output",
		Title: "Headline Text File Output",
		Body: "bbc_headlines.txt starts with a fetch timestamp and a separator line, " +
			"followed by one numbered headline per line. The file is overwritten on each fetch.",
		Keywords: []string{"file", "text", "output", "headlines", "format"},
	},
	{
		ID:    "draw-rectangle",
		Title: "Drawing Rectangles",
		Body: "draw_rectangle takes width, height and a text label and renders an SVG rectangle " +
			"with the text centered inside.",
		Keywords: []string{"draw", "rectangle", "width", "height", "svg"},
	},
	{
		ID:    "draw-text",
		Title: "Adding Text to a Drawing",
		Body: "The third argument of draw_rectangle places a label inside the shape. " +
			"Keep labels short so they fit the rectangle.",
		Keywords: []string{"text", "label", "draw", "write"},
	},
	{
		ID:    "draw-workflow",
		Title: "Drawing Workflow",
		Body: "Draw first, then let the display step open the artifact. draw_rectangle marks its " +
			"output as visual so a display window follows when visualization was requested.",
		Keywords: []string{"draw", "workflow", "display", "window", "paint"},
	},
	{
		ID:    "display-countdown",
		Title: "Display Countdown",
		Body: "The display step blocks for a fixed countdown before control returns to the loop. " +
			"Nothing else runs while the window is open.",
		Keywords: []string{"display", "countdown", "window", "browser", "wait"},
	},
	{
		ID:    "artifacts-dir",
		Title: "Artifacts Directory",
		Body: "Generated files land in the artifacts directory and are overwritten per run. " +
			"They are plain files: a text list, an HTML page, an SVG drawing.",
		Keywords: []string{"file", "artifacts", "output", "overwrite"},
	},
	{
		ID:    "ascii-exponential",
		Title: "ASCII and Exponential Sums",
		Body: "strings_to_chars_to_int converts a word into ASCII codes. " +
			"int_list_to_exponential_sum takes integers and returns the sum of their exponentials.",
		Keywords: []string{"ascii", "exponential", "sum", "values", "characters"},
	},
	{
		ID:    "simple-arithmetic",
		Title: "Simple Arithmetic",
		Body:  "add takes two integers and returns their sum.",
		Keywords: []string{"add", "sum", "numbers", "arithmetic"},
	},
}

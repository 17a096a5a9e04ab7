package bot

// searchTips is static content for /tips; nothing here touches the pipeline.
const searchTips = `**Job-search operator tips**

• ` + "`site:boards.greenhouse.io \"fresher\"`" + ` — search one ATS at a time
• ` + "`intitle:\"off campus\" 2025 batch`" + ` — catch drive announcements early
• ` + "`\"qualification\" \"B.E/B.Tech\" -senior`" + ` — drop senior roles from results
• ` + "`after:2025-01-01 \"apply link\"`" + ` — skip stale postings
• Combine with a location: ` + "`\"work from home\" OR remote`" + `

Run ` + "`/jobs only_new:true`" + ` here to get only postings this channel hasn't seen.`

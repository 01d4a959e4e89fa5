package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/pipeline"
	"blog-graph/backend/internal/services"
	"blog-graph/backend/pkg/config"
	"blog-graph/backend/pkg/logger"
)

// demoBlogs cover three tags with overlapping terms so the co-occurrence
// and cross-blog links show up in the rendered graph.
var demoBlogs = []models.Blog{
	{
		Slug:    "flexbox-guide",
		Title:   "Flexbox 布局指南",
		Tag:     "CSS",
		Summary: "从主轴与交叉轴理解 Flexbox",
		Content: "Flexbox 是一种 CSS 布局方式，适合一维布局。\n\n" +
			"容器上的 flex-direction 属性决定主轴方向，justify-content 控制主轴对齐。Flexbox 与 Grid 可以配合使用。\n\n" +
			"子元素通过 flex-grow 和 flex-shrink 分配剩余空间。flex-direction 改变时 justify-content 的含义也随之改变。",
	},
	{
		Slug:    "css-grid",
		Title:   "CSS Grid 实战",
		Tag:     "CSS",
		Summary: "二维布局的首选方案",
		Content: "Grid 是 CSS 中的二维布局系统。\n\n" +
			"grid-template-columns 定义列轨道，Grid 与 Flexbox 的区别在于同时控制行和列。\n\n" +
			"使用 grid-template-columns 和 gap 可以快速搭建响应式页面，Flexbox 适合处理单行内容。",
	},
	{
		Slug:    "redux-basics",
		Title:   "Redux 入门",
		Tag:     "React",
		Summary: "单向数据流与 reducer",
		Content: "Redux 是一个状态管理库，常与 React 一起使用。\n\n" +
			"Redux 包含 reducer 概念，reducer 是纯函数。React 组件通过 useSelector 读取 Redux 状态。\n\n" +
			"dispatch 一个 action 后 reducer 计算新状态，React 随之重新渲染。",
	},
	{
		Slug:    "react-hooks",
		Title:   "React Hooks 详解",
		Tag:     "React",
		Content: "React Hooks 让函数组件拥有状态。\n\n" +
			"useState 管理本地状态，useEffect 处理副作用。React 推荐把副作用放进 useEffect 中。\n\n" +
			"useSelector 是 Redux 提供的 Hook，useState 与 useEffect 是最常用的组合。",
	},
	{
		Slug:    "go-channels",
		Title:   "Go Channel 与并发",
		Tag:     "Go",
		Summary: "goroutine 之间的通信",
		Content: "Go 通过 goroutine 和 channel 实现并发。\n\n" +
			"channel 是 goroutine 之间传递数据的管道，select 语句可以同时等待多个 channel。\n\n" +
			"context 用于取消 goroutine，select 与 context 配合可以优雅退出。",
	},
}

func main() {
	force := flag.Bool("force", false, "Clear the graph before seeding")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	sm := services.NewServiceManager(cfg, log.Named("services"))
	defer sm.StopAll(ctx)

	// Connects and creates constraints and indexes
	repo, err := sm.StartGraphStore(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}

	tags, err := repo.Tags(ctx)
	if err != nil {
		log.Fatal("Failed to read existing tags", zap.Error(err))
	}
	if len(tags) > 0 && !*force {
		log.Info("Graph already has data, skipping seed (use -force to recreate)",
			zap.Strings("tags", tags),
		)
		os.Exit(0)
	}
	if *force {
		log.Info("Clearing graph...")
		if err := repo.Clear(ctx); err != nil {
			log.Fatal("Failed to clear graph", zap.Error(err))
		}
	}

	processor := sm.Processor(repo, blogsource.NewStaticSource(demoBlogs...))
	results, err := processor.ProcessAll(ctx)
	if err != nil {
		log.Fatal("Failed to seed blogs", zap.Error(err))
	}

	failed := 0
	for _, r := range results {
		if r.Status != pipeline.StatusSuccess {
			failed++
			log.Warn("Failed to seed blog", zap.String("slug", r.Slug), zap.String("error", r.Error))
			continue
		}
		log.Info("Seeded blog",
			zap.String("slug", r.Slug),
			zap.Int("nodes", r.Nodes),
			zap.Int("relationships", r.Relationships),
		)
	}

	data, err := repo.QueryAll(ctx)
	if err != nil {
		log.Fatal("Failed to verify seed", zap.Error(err))
	}
	log.Info("Seed completed",
		zap.Int("blogs", len(results)-failed),
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("relationships", len(data.Relationships)),
	)
}

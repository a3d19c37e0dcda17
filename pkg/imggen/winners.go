// Package imggen 图片生成模块
package imggen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/smysle/sakura-raffle-go/pkg/utils"
)

// WinnerItem 中奖名单条目
type WinnerItem struct {
	Sequence     int
	TicketNumber int
	Username     string // 未售出票券中奖时为空
	PrizeName    string
	IsWinner     bool
}

// WinnersBoardConfig 中奖名单图片配置
type WinnersBoardConfig struct {
	Title       string
	Subtitle    string
	Items       []WinnerItem
	FontPath    string // 为空则使用默认字体
	GeneratedAt time.Time
}

// 颜色定义
var (
	bgColor      = color.RGBA{25, 25, 35, 255}    // 深色背景
	cardColor    = color.RGBA{35, 35, 50, 255}    // 卡片背景
	goldColor    = color.RGBA{255, 215, 0, 255}   // 金色
	textColor    = color.RGBA{255, 255, 255, 255} // 白色文字
	subTextColor = color.RGBA{180, 180, 180, 255} // 灰色文字
	accentColor  = color.RGBA{138, 43, 226, 255}  // 紫色强调
	missColor    = color.RGBA{120, 120, 140, 255} // 轮空条目
	topBgColor   = color.RGBA{30, 60, 114, 255}   // 渐变起始
)

// GenerateWinnersBoard 生成中奖名单图片
func GenerateWinnersBoard(cfg WinnersBoardConfig) ([]byte, error) {
	// 计算图片尺寸
	width := 600
	headerHeight := 120
	itemHeight := 70
	footerHeight := 50
	padding := 20

	itemCount := len(cfg.Items)
	if itemCount > 20 {
		itemCount = 20
	}

	height := headerHeight + itemCount*itemHeight + footerHeight + padding*2

	// 创建画布
	dc := gg.NewContext(width, height)

	// 加载中文字体；加载失败时回退到默认字体
	titleFace, bodyFace := loadFaces(cfg.FontPath)

	// 绘制背景渐变
	drawBackground(dc, width, height)

	// 绘制标题区域
	drawHeader(dc, width, cfg, titleFace, bodyFace)

	// 绘制中奖条目
	if bodyFace != nil {
		dc.SetFontFace(bodyFace)
	}
	startY := float64(headerHeight + padding)
	for i, item := range cfg.Items {
		if i >= 20 {
			break
		}
		drawWinnerItem(dc, width, startY+float64(i*itemHeight), item)
	}

	// 绘制底部信息
	drawFooter(dc, width, height, cfg.GeneratedAt)

	// 导出为 PNG
	return exportPNG(dc)
}

// loadFaces 从 TTF 文件加载标题与正文字体
func loadFaces(fontPath string) (font.Face, font.Face) {
	if fontPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, nil
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, nil
	}

	titleFace := truetype.NewFace(ttf, &truetype.Options{Size: 28})
	bodyFace := truetype.NewFace(ttf, &truetype.Options{Size: 16})
	return titleFace, bodyFace
}

// drawBackground 绘制背景
func drawBackground(dc *gg.Context, width, height int) {
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		r := uint8(float64(topBgColor.R)*(1-t) + float64(bgColor.R)*t)
		g := uint8(float64(topBgColor.G)*(1-t) + float64(bgColor.G)*t)
		b := uint8(float64(topBgColor.B)*(1-t) + float64(bgColor.B)*t)
		dc.SetColor(color.RGBA{r, g, b, 255})
		dc.DrawRectangle(0, float64(y), float64(width), 1)
		dc.Fill()
	}
}

// drawHeader 绘制标题
func drawHeader(dc *gg.Context, width int, cfg WinnersBoardConfig, titleFace, bodyFace font.Face) {
	if titleFace != nil {
		dc.SetFontFace(titleFace)
	}

	// 绘制标题文本
	dc.SetColor(textColor)
	title := fmt.Sprintf("🏆 %s", cfg.Title)
	dc.DrawStringAnchored(title, float64(width)/2, 45, 0.5, 0.5)

	// 绘制副标题
	if bodyFace != nil {
		dc.SetFontFace(bodyFace)
	}
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored(cfg.Subtitle, float64(width)/2, 80, 0.5, 0.5)

	// 绘制分隔线
	dc.SetColor(accentColor)
	dc.SetLineWidth(2)
	dc.DrawLine(50, 110, float64(width-50), 110)
	dc.Stroke()
}

// drawWinnerItem 绘制中奖条目
func drawWinnerItem(dc *gg.Context, width int, y float64, item WinnerItem) {
	cardX := 20.0
	cardY := y
	cardW := float64(width - 40)
	cardH := 60.0

	// 绘制卡片背景
	dc.SetColor(color.RGBA{cardColor.R, cardColor.G, cardColor.B, 200})
	dc.DrawRoundedRectangle(cardX, cardY, cardW, cardH, 10)
	dc.Fill()

	// 绘制开奖序号
	seqX := cardX + 35
	seqY := cardY + cardH/2

	if item.IsWinner {
		dc.SetColor(goldColor)
	} else {
		dc.SetColor(missColor)
	}
	dc.DrawStringAnchored(fmt.Sprintf("#%d", item.Sequence), seqX, seqY, 0.5, 0.5)

	// 绘制中奖人与票号
	if item.IsWinner {
		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.Username, cardX+100, seqY-10, 0, 0.5)

		dc.SetColor(subTextColor)
		detail := fmt.Sprintf("票号 %s | %s", utils.TicketLabel(item.TicketNumber), item.PrizeName)
		dc.DrawStringAnchored(detail, cardX+100, seqY+12, 0, 0.5)
	} else {
		dc.SetColor(missColor)
		dc.DrawStringAnchored("奖品轮空", cardX+100, seqY-10, 0, 0.5)

		detail := fmt.Sprintf("票号 %s 未售出", utils.TicketLabel(item.TicketNumber))
		dc.DrawStringAnchored(detail, cardX+100, seqY+12, 0, 0.5)
	}

	// 绘制右侧装饰
	dc.SetColor(accentColor)
	dc.DrawCircle(cardX+cardW-30, seqY, 5)
	dc.Fill()
}

// drawFooter 绘制底部
func drawFooter(dc *gg.Context, width, height int, generatedAt time.Time) {
	dc.SetColor(subTextColor)
	footerText := fmt.Sprintf("生成于 %s | Sakura Raffle", generatedAt.Format("2006-01-02 15:04"))
	dc.DrawStringAnchored(footerText, float64(width)/2, float64(height-25), 0.5, 0.5)
}

// exportPNG 导出为 PNG
func exportPNG(dc *gg.Context) ([]byte, error) {
	img := dc.Image()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}

	return buf.Bytes(), nil
}

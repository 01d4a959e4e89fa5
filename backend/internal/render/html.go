package render

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
)

// HTMLOptions configures the interactive page
type HTMLOptions struct {
	Title            string
	SearchDebounceMs int
}

// DefaultHTMLOptions returns the stock page settings
func DefaultHTMLOptions() HTMLOptions {
	return HTMLOptions{Title: "Knowledge graph", SearchDebounceMs: 300}
}

type jsNode struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Blog     bool    `json:"blog"`
	Category string  `json:"category"`
	URL      string  `json:"url,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	R        float64 `json:"r"`
	Color    string  `json:"color"`
}

type jsLink struct {
	Source int    `json:"s"`
	Target int    `json:"t"`
	Type   string `json:"type"`
}

// HTML writes a self-contained page that draws the laid-out graph on a
// canvas with search, hover and click highlighting, drag, zoom and pan, and
// double-click navigation to blog articles. All data is embedded as JSON.
func HTML(w io.Writer, sim *layout.Simulation, opts HTMLOptions) error {
	if opts.SearchDebounceMs <= 0 {
		opts.SearchDebounceMs = 300
	}
	nodes := sim.Nodes()
	colors, _ := categoryColors(nodes)

	jsNodes := make([]jsNode, 0, len(nodes))
	for _, n := range nodes {
		jsNodes = append(jsNodes, jsNode{
			ID:       n.ID,
			Label:    n.Label,
			Blog:     n.Type == models.NodeTypeBlog,
			Category: categoryOf(n),
			URL:      n.URL,
			Summary:  n.Summary,
			X:        n.X,
			Y:        n.Y,
			R:        n.Radius,
			Color:    cssRGBA(colors[categoryOf(n)]),
		})
	}
	jsLinks := make([]jsLink, 0, len(sim.Links()))
	for _, l := range sim.Links() {
		jsLinks = append(jsLinks, jsLink{Source: l.Source.Index, Target: l.Target.Index, Type: l.Type})
	}

	// json.Marshal escapes <, > and &, so labels cannot close the script tag
	nodesJSON, err := json.Marshal(jsNodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}
	linksJSON, err := json.Marshal(jsLinks)
	if err != nil {
		return fmt.Errorf("failed to encode links: %w", err)
	}

	title := html.EscapeString(opts.Title)
	_, err = fmt.Fprintf(w, pageTemplate, title, title, nodesJSON, linksJSON, opts.SearchDebounceMs)
	return err
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{background:#0a0e17;color:#e0e0e0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;overflow:hidden}
canvas{display:block}
#info{position:fixed;top:16px;left:16px;z-index:10;background:rgba(10,14,23,0.9);border:1px solid rgba(45,182,130,0.3);border-radius:12px;padding:14px 18px;font-size:13px}
#info h2{color:#2DB682;font-size:16px;margin-bottom:6px}
.stat{color:#888;margin:2px 0}
.stat b{color:#ccc}
#tooltip{position:fixed;z-index:20;pointer-events:none;display:none;background:rgba(10,14,23,0.95);border:1px solid rgba(45,182,130,0.5);border-radius:10px;padding:10px 14px;font-size:12px;max-width:300px}
.tt-name{color:#2DB682;font-weight:700;font-size:14px}
.tt-type{color:#888;font-style:italic;margin-bottom:4px}
#search{position:fixed;top:16px;right:16px;z-index:10;background:rgba(10,14,23,0.9);border:1px solid rgba(45,182,130,0.3);border-radius:8px;padding:8px 14px;color:#e0e0e0;font-size:13px;outline:none;width:220px}
#search:focus{border-color:#2DB682}
</style>
</head>
<body>
<div id="info">
  <h2>%s</h2>
  <div class="stat"><b id="n-nodes">0</b> nodes</div>
  <div class="stat"><b id="n-links">0</b> links</div>
  <div class="stat" style="margin-top:6px;color:#555;font-size:11px">drag nodes / scroll to zoom / double-click a blog to open it</div>
</div>
<input id="search" type="text" placeholder="Search...">
<div id="tooltip"></div>
<canvas id="canvas"></canvas>
<script>
"use strict";
const NODES=%s;
const LINKS=%s;
const DEBOUNCE=%d;

document.getElementById('n-nodes').textContent=NODES.length;
document.getElementById('n-links').textContent=LINKS.length;

const canvas=document.getElementById('canvas');
const ctx=canvas.getContext('2d');
const tooltip=document.getElementById('tooltip');
let W,H;
function resize(){W=canvas.width=window.innerWidth;H=canvas.height=window.innerHeight;draw()}

let view={k:1,x:0,y:0};
function fitView(){
  if(!NODES.length)return;
  let x0=Infinity,y0=Infinity,x1=-Infinity,y1=-Infinity;
  for(const n of NODES){x0=Math.min(x0,n.x-n.r);y0=Math.min(y0,n.y-n.r);x1=Math.max(x1,n.x+n.r);y1=Math.max(y1,n.y+n.r)}
  const k=Math.min(1.5,Math.min((window.innerWidth-80)/Math.max(1,x1-x0),(window.innerHeight-80)/Math.max(1,y1-y0)));
  view={k:k,x:(window.innerWidth-(x1-x0)*k)/2-x0*k,y:(window.innerHeight-(y1-y0)*k)/2-y0*k};
}
function toScreen(x,y){return[x*view.k+view.x,y*view.k+view.y]}
function toWorld(sx,sy){return[(sx-view.x)/view.k,(sy-view.y)/view.k]}

let hovered=null,focused=null,query='',drag=null;

function neighbours(i){
  const s=new Set([i]);
  for(const l of LINKS){if(l.s===i)s.add(l.t);if(l.t===i)s.add(l.s)}
  return s;
}
function matches(n){
  const q=query.toLowerCase();
  return n.label.toLowerCase().includes(q)||(n.summary||'').toLowerCase().includes(q);
}
function opacities(){
  const active=focused!==null?focused:hovered;
  if(active!==null){
    const near=neighbours(active);
    return{node:i=>near.has(i)?1:0.2,link:l=>(l.s===active||l.t===active)?1:0.1};
  }
  if(query){
    const hit=new Set();NODES.forEach((n,i)=>{if(matches(n))hit.add(i)});
    return{node:i=>hit.has(i)?1:0.1,link:l=>(hit.has(l.s)||hit.has(l.t))?0.6:0.1};
  }
  return{node:()=>1,link:()=>0.6};
}

function draw(){
  if(!ctx)return;
  ctx.clearRect(0,0,W,H);
  const op=opacities();
  for(const l of LINKS){
    const a=NODES[l.s],b=NODES[l.t];
    const[ax,ay]=toScreen(a.x,a.y),[bx,by]=toScreen(b.x,b.y);
    ctx.globalAlpha=op.link(l);
    ctx.beginPath();ctx.moveTo(ax,ay);ctx.lineTo(bx,by);
    ctx.strokeStyle=l.type==='CONTAINS'?'#4a5568':'#2DB682';
    ctx.lineWidth=l.type==='CONTAINS'?1:1.5;ctx.stroke();
  }
  NODES.forEach((n,i)=>{
    const[sx,sy]=toScreen(n.x,n.y);const r=n.r*view.k;
    ctx.globalAlpha=op.node(i);
    ctx.beginPath();ctx.arc(sx,sy,r,0,Math.PI*2);
    ctx.fillStyle=n.color;ctx.fill();
    if(n.blog){ctx.strokeStyle='#fff';ctx.lineWidth=2;ctx.stroke()}
    ctx.font=(n.blog?'bold 12px ':'10px ')+'-apple-system,sans-serif';
    ctx.fillStyle=n.blog?'#e0e0e0':'#888';ctx.textAlign='center';
    ctx.fillText(n.label,sx,sy+r+12);
  });
  ctx.globalAlpha=1;
}

function hit(sx,sy){
  const[wx,wy]=toWorld(sx,sy);
  for(let i=NODES.length-1;i>=0;i--){
    const n=NODES[i],dx=n.x-wx,dy=n.y-wy;
    if(dx*dx+dy*dy<=(n.r+2)*(n.r+2))return i;
  }
  return null;
}

canvas.addEventListener('mousedown',e=>{
  const i=hit(e.clientX,e.clientY);
  drag=i!==null?{node:i}:{pan:true,sx:e.clientX,sy:e.clientY,vx:view.x,vy:view.y};
});
canvas.addEventListener('mousemove',e=>{
  if(drag&&drag.pan){view.x=drag.vx+e.clientX-drag.sx;view.y=drag.vy+e.clientY-drag.sy;drag.moved=true}
  else if(drag){const[wx,wy]=toWorld(e.clientX,e.clientY);NODES[drag.node].x=wx;NODES[drag.node].y=wy;drag.moved=true}
  const i=hit(e.clientX,e.clientY);
  if(i!==hovered){
    hovered=i;
    if(i===null){tooltip.style.display='none';canvas.style.cursor='default'}
    else{
      const n=NODES[i];canvas.style.cursor='pointer';tooltip.textContent='';
      const name=document.createElement('div');name.className='tt-name';name.textContent=n.label;tooltip.appendChild(name);
      const type=document.createElement('div');type.className='tt-type';type.textContent=n.blog?'blog':n.category;tooltip.appendChild(type);
      if(n.summary){const s=document.createElement('div');s.textContent=n.summary;tooltip.appendChild(s)}
      tooltip.style.display='block';
    }
  }
  if(hovered!==null){tooltip.style.left=(e.clientX+14)+'px';tooltip.style.top=(e.clientY+14)+'px'}
  draw();
});
canvas.addEventListener('mouseup',e=>{
  if(drag&&!drag.moved){
    const i=hit(e.clientX,e.clientY);
    focused=(i===null||i===focused)?null:i;
  }
  drag=null;draw();
});
canvas.addEventListener('dblclick',e=>{
  const i=hit(e.clientX,e.clientY);
  if(i!==null&&NODES[i].blog&&NODES[i].url)window.open(NODES[i].url,'_blank');
});
canvas.addEventListener('wheel',e=>{
  e.preventDefault();
  const f=e.deltaY<0?1.1:1/1.1;
  const k=Math.max(0.1,Math.min(4,view.k*f));
  const[wx,wy]=toWorld(e.clientX,e.clientY);
  view={k:k,x:e.clientX-wx*k,y:e.clientY-wy*k};
  draw();
},{passive:false});

let timer=null;
document.getElementById('search').addEventListener('input',e=>{
  clearTimeout(timer);
  const text=e.target.value.trim();
  timer=setTimeout(()=>{query=text;draw()},DEBOUNCE);
});

window.addEventListener('resize',resize);
fitView();
resize();
</script>
</body>
</html>
`

package media

import (
	"fmt"
	"image"
	"log"
	"math"

	"gocv.io/x/gocv"
)

// priorBox defines a RetinaFace anchor box (center_x, center_y, width, height)
type priorBox struct {
	Cx, Cy, W, H float32
}

// generatePriors generates anchor priors for the standard RetinaFace config
func generatePriors(imgW, imgH int) []priorBox {
	minSizes := [][]int{{16, 32}, {64, 128}, {256, 512}}
	steps := []int{8, 16, 32}
	featureMapSizes := [][]int{
		{imgH / 8, imgW / 8},
		{imgH / 16, imgW / 16},
		{imgH / 32, imgW / 32},
	}
	priors := []priorBox{}
	for k, fms := range featureMapSizes {
		fmH, fmW := fms[0], fms[1]
		for i := 0; i < fmH; i++ {
			for j := 0; j < fmW; j++ {
				for _, minSize := range minSizes[k] {
					cx := (float32(j) + 0.5) * float32(steps[k]) / float32(imgW)
					cy := (float32(i) + 0.5) * float32(steps[k]) / float32(imgH)
					w := float32(minSize) / float32(imgW)
					h := float32(minSize) / float32(imgH)
					priors = append(priors, priorBox{Cx: cx, Cy: cy, W: w, H: h})
				}
			}
		}
	}
	return priors
}

var priorVariances = [2]float32{0.1, 0.2}

// decodeBox decodes a single box prediction using its prior
func decodeBox(rawBox [4]float32, prior priorBox) [4]float32 {
	cx := prior.Cx + rawBox[0]*priorVariances[0]*prior.W
	cy := prior.Cy + rawBox[1]*priorVariances[0]*prior.H
	w := prior.W * float32Exp(rawBox[2]*priorVariances[1])
	h := prior.H * float32Exp(rawBox[3]*priorVariances[1])
	return [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2}
}

func float32Exp(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

// DNNDetector implements FaceDetector using a RetinaFace detection network
// and an ArcFace/FaceNet recognition network via the gocv DNN module
type DNNDetector struct {
	detectionNet   gocv.Net
	recognitionNet gocv.Net
	Enabled        bool
	ModelName      string

	// configuration parameters used during detection
	InputSizeW    int
	InputSizeH    int
	ConfThreshold float32
	IoUThreshold  float32

	embedSizeW int
	embedSizeH int
}

// Ensure DNNDetector implements FaceDetector
var _ FaceDetector = (*DNNDetector)(nil)

// NewDNNDetector loads the detection and recognition models. A missing or
// unreadable model disables the detector rather than failing startup; calls
// on a disabled detector return an error.
func NewDNNDetector(detectionModelPath, recognitionModelPath, modelName string) *DNNDetector {
	if detectionModelPath == "" || recognitionModelPath == "" {
		log.Println("detection(dnn): model path is empty, disabling detector")
		return &DNNDetector{Enabled: false}
	}

	detNet := gocv.ReadNet(detectionModelPath, "")
	if detNet.Empty() {
		log.Printf("detection(dnn): ERROR - failed to load detection model %s", detectionModelPath)
		return &DNNDetector{Enabled: false}
	}

	recNet := gocv.ReadNet(recognitionModelPath, "")
	if recNet.Empty() {
		log.Printf("detection(dnn): ERROR - failed to load recognition model %s", recognitionModelPath)
		detNet.Close()
		return &DNNDetector{Enabled: false}
	}

	for _, net := range []*gocv.Net{&detNet, &recNet} {
		if net.SetPreferableBackend(gocv.NetBackendCUDA) != nil || net.SetPreferableTarget(gocv.NetTargetCUDA) != nil {
			net.SetPreferableBackend(gocv.NetBackendDefault)
			net.SetPreferableTarget(gocv.NetTargetCPU)
		}
	}

	embedW, embedH := 112, 112
	if modelName == "facenet" {
		embedW, embedH = 160, 160
	}

	log.Printf("detection(dnn): loaded detection and %s recognition models", modelName)
	return &DNNDetector{
		detectionNet:   detNet,
		recognitionNet: recNet,
		Enabled:        true,
		ModelName:      modelName,
		InputSizeW:     640,
		InputSizeH:     640,
		ConfThreshold:  0.5,
		IoUThreshold:   0.5,
		embedSizeW:     embedW,
		embedSizeH:     embedH,
	}
}

// Close releases the underlying networks
func (d *DNNDetector) Close() {
	if d != nil && d.Enabled {
		d.detectionNet.Close()
		d.recognitionNet.Close()
		d.Enabled = false
		log.Println("detection(dnn): closed networks")
	}
}

// DetectFaces runs detection on the image and extracts an embedding for
// every face found
func (d *DNNDetector) DetectFaces(img image.Image) ([]Detection, error) {
	if d == nil || !d.Enabled {
		return nil, fmt.Errorf("face detector is not available")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	imgWidth := float32(mat.Cols())
	imgHeight := float32(mat.Rows())

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(d.InputSizeW, d.InputSizeH), gocv.NewScalar(104.0, 117.0, 123.0, 0), false, false)
	defer blob.Close()

	d.detectionNet.SetInput(blob, "input")
	outputs := d.detectionNet.ForwardLayers([]string{"bbox", "confidence", "landmark"})
	if len(outputs) < 3 {
		return nil, fmt.Errorf("detection network returned %d outputs, expected 3", len(outputs))
	}
	defer func() {
		for _, out := range outputs {
			out.Close()
		}
	}()

	detections := d.parseOutputs(outputs[0], outputs[1], outputs[2], imgWidth, imgHeight)
	detections = d.nonMaxSuppression(detections)

	for i := range detections {
		region := mat.Region(image.Rect(
			int(detections[i].Box.X1), int(detections[i].Box.Y1),
			int(detections[i].Box.X2), int(detections[i].Box.Y2)))
		detections[i].Embedding = d.extractEmbedding(region)
		region.Close()
	}

	return detections, nil
}

// parseOutputs decodes boxes, scores and landmarks against the anchor priors
func (d *DNNDetector) parseOutputs(boxes, scores, landmarks gocv.Mat, imgWidth, imgHeight float32) []Detection {
	numDetections := boxes.Size()[1]
	priors := generatePriors(d.InputSizeW, d.InputSizeH)
	if len(priors) != numDetections {
		log.Printf("detection(dnn): WARNING - priors count (%d) != detections (%d)", len(priors), numDetections)
		return nil
	}

	var detections []Detection
	for i := 0; i < numDetections; i++ {
		score := scores.GetFloatAt(0, i*2+1)
		if score < d.ConfThreshold {
			continue
		}

		var rawBox [4]float32
		for j := 0; j < 4; j++ {
			rawBox[j] = boxes.GetFloatAt(0, i*4+j)
		}
		decoded := decodeBox(rawBox, priors[i])
		x1 := maxFloat32(0, decoded[0]*imgWidth)
		y1 := maxFloat32(0, decoded[1]*imgHeight)
		x2 := minFloat32(imgWidth, decoded[2]*imgWidth)
		y2 := minFloat32(imgHeight, decoded[3]*imgHeight)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		// landmarks are encoded against the prior center like the boxes
		var pts [5]Point2D
		for j := 0; j < 5; j++ {
			lx := priors[i].Cx + landmarks.GetFloatAt(0, i*10+j*2+0)*priorVariances[0]*priors[i].W
			ly := priors[i].Cy + landmarks.GetFloatAt(0, i*10+j*2+1)*priorVariances[0]*priors[i].H
			pts[j] = Point2D{X: float64(lx * imgWidth), Y: float64(ly * imgHeight)}
		}

		detections = append(detections, Detection{
			Box:        BoundingBox{X1: float64(x1), Y1: float64(y1), X2: float64(x2), Y2: float64(y2)},
			Landmarks:  Landmarks{LeftEye: pts[0], RightEye: pts[1], Nose: pts[2], LeftMouth: pts[3], RightMouth: pts[4]},
			Confidence: float64(score),
		})
	}
	return detections
}

// nonMaxSuppression removes overlapping detections, keeping the most
// confident of each overlapping group
func (d *DNNDetector) nonMaxSuppression(detections []Detection) []Detection {
	if len(detections) == 0 {
		return detections
	}

	for i := 0; i < len(detections)-1; i++ {
		for j := i + 1; j < len(detections); j++ {
			if detections[i].Confidence < detections[j].Confidence {
				detections[i], detections[j] = detections[j], detections[i]
			}
		}
	}

	var result []Detection
	used := make([]bool, len(detections))
	for i := 0; i < len(detections); i++ {
		if used[i] {
			continue
		}
		result = append(result, detections[i])
		used[i] = true
		for j := i + 1; j < len(detections); j++ {
			if !used[j] && boxIoU(detections[i].Box, detections[j].Box) > float64(d.IoUThreshold) {
				used[j] = true
			}
		}
	}
	return result
}

// boxIoU calculates the Intersection over Union between two boxes
func boxIoU(a, b BoundingBox) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// extractEmbedding runs the recognition network on a face region and
// returns a unit-norm embedding vector
func (d *DNNDetector) extractEmbedding(faceRegion gocv.Mat) []float32 {
	if faceRegion.Empty() {
		return nil
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(faceRegion, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	resized := gocv.NewMat()
	gocv.Resize(rgb, &resized, image.Pt(d.embedSizeW, d.embedSizeH), 0, 0, gocv.InterpolationLinear)
	defer resized.Close()

	blob := gocv.BlobFromImage(resized, 1.0/255.0, image.Pt(d.embedSizeW, d.embedSizeH), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.recognitionNet.SetInput(blob, "")
	output := d.recognitionNet.Forward("")
	defer output.Close()

	flattened := output.Reshape(1, 1)
	defer flattened.Close()

	embedding := make([]float32, flattened.Cols())
	for i := 0; i < flattened.Cols(); i++ {
		embedding[i] = flattened.GetFloatAt(0, i)
	}

	return normalizeEmbedding(embedding)
}

// normalizeEmbedding normalizes a vector to unit length
func normalizeEmbedding(embedding []float32) []float32 {
	var norm float32
	for _, val := range embedding {
		norm += val * val
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = val / norm
	}
	return normalized
}

func minFloat32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
